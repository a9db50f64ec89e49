package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"ajiri/internal/ai"
	"ajiri/internal/app"
	"ajiri/internal/bootstrap"
	"ajiri/internal/config"
	"ajiri/internal/ocr"
	"ajiri/internal/platform/awsclient"
	"ajiri/internal/repository"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ajiri-admin",
		Short:        "Operator tasks for the AJIRI backend",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		newCreateUserCmd(),
		newListUsersCmd(),
		newCheckAWSCmd(),
		newCheckBedrockCmd(),
	)
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return cfg, nil
}

func openDatabase(ctx context.Context) (*config.Config, *gorm.DB, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return cfg, db, closeFn, nil
}

func newCreateUserCmd() *cobra.Command {
	var input app.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account and print its token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			authService := app.NewAuthService(repository.NewUserRepository(db), cfg.Auth.JWTSecret, cfg.JWTExpiration(), cfg.Auth.BcryptCost)
			result, err := authService.Register(ctx, input)
			if errors.Is(err, app.ErrUserExists) {
				fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists\n", input.Email)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\ntoken: %s\n", result.User.ID, result.User.Email, result.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Username, "username", "", "username")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&input.Password, "password", "", "password, at least 6 characters")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newListUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List accounts with their API request counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, db, closeDB, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			authService := app.NewAuthService(repository.NewUserRepository(db), cfg.Auth.JWTSecret, cfg.JWTExpiration(), cfg.Auth.BcryptCost)
			usageService := app.NewUsageService(repository.NewUsageRepository(db), nil)
			users, err := authService.ListUsers(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tACTIVE\tREQUESTS\tCREATED")
			for _, u := range users {
				count, err := usageService.CountForUser(ctx, u.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%d\t%s\n", u.ID, u.Username, u.Email, u.IsActive, count, u.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

// Textract error codes that are only returned to an authenticated caller.
var textractReachableCodes = map[string]bool{
	"InvalidParameterException":    true,
	"UnsupportedDocumentException": true,
	"BadDocumentException":         true,
}

func newCheckAWSCmd() *cobra.Command {
	var (
		file        string
		skipBedrock bool
	)
	cmd := &cobra.Command{
		Use:   "check-aws",
		Short: "Call Textract and Bedrock with the configured credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 90*time.Second)
			defer cancel()
			out := cmd.OutOrStdout()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			awsCfg, err := awsclient.LoadConfig(ctx, cfg.AWS)
			if err != nil {
				return err
			}
			creds, err := awsCfg.Credentials.Retrieve(ctx)
			if err != nil {
				return fmt.Errorf("retrieve aws credentials failed: %w", err)
			}
			fmt.Fprintf(out, "region: %s\ncredentials: %s\n", awsCfg.Region, creds.Source)

			document := []byte("ajiri textract check")
			if file != "" {
				if document, err = os.ReadFile(file); err != nil {
					return fmt.Errorf("read sample failed: %w", err)
				}
			}
			engine := ocr.NewTextractEngine(awsCfg, time.Duration(cfg.AWS.TextractTimeoutSecond)*time.Second)
			result, err := engine.DetectText(ctx, document)
			switch {
			case err == nil:
				fmt.Fprintf(out, "textract: ok, %d page(s), %d line(s)\n", result.Pages, len(result.Lines))
			case file == "" && textractReachableCodes[awsclient.ErrorCode(err)]:
				fmt.Fprintf(out, "textract: ok (%s on sample document)\n", awsclient.ErrorCode(err))
			default:
				return fmt.Errorf("textract: %s", awsclient.Describe(err))
			}

			if skipBedrock {
				return nil
			}
			answer, err := ai.NewBedrockClient(awsCfg, cfg.Bedrock).Answer(ctx, "Reply with the single word OK.")
			if err != nil {
				return fmt.Errorf("bedrock: %s", awsclient.Describe(err))
			}
			fmt.Fprintf(out, "bedrock: ok (%s): %s\n", cfg.Bedrock.ModelID, answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "image or PDF to send to Textract instead of a sample document")
	cmd.Flags().BoolVar(&skipBedrock, "skip-bedrock", false, "only check Textract")
	return cmd
}

func newCheckBedrockCmd() *cobra.Command {
	var question string
	cmd := &cobra.Command{
		Use:   "check-bedrock",
		Short: "Send one prompt to the configured Bedrock model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			awsCfg, err := awsclient.LoadConfig(ctx, cfg.AWS)
			if err != nil {
				return err
			}
			client := ai.NewBedrockClient(awsCfg, cfg.Bedrock)
			start := time.Now()
			answer, err := client.Answer(ctx, ai.DocumentPrompt("Invoice total: 42 KES", question))
			if err != nil {
				return fmt.Errorf("bedrock: %s", awsclient.Describe(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model: %s\nlatency: %s\nanswer: %s\n", cfg.Bedrock.ModelID, time.Since(start).Round(time.Millisecond), answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&question, "question", "What is the invoice total?", "question to ask")
	return cmd
}
