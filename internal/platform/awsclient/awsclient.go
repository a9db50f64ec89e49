package awsclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"

	"ajiri/internal/config"
)

// LoadConfig resolves the shared AWS configuration. Static keys from config
// take precedence; otherwise the default credential chain is used.
func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config failed: %w", err)
	}
	return awsCfg, nil
}

// ErrorCode returns the provider error code carried by err, or "" when err
// did not come from an AWS API.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// Describe turns an AWS error into a message fit for an API client.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch code := ErrorCode(err); {
	case code == "AccessDeniedException":
		return "Access denied to AWS service. Please check IAM permissions."
	case code == "ValidationException":
		return "Invalid request to AWS service. Please check the model ID and request format."
	case code == "ThrottlingException":
		return "AWS service is throttling requests. Please try again later."
	case strings.HasPrefix(code, "UnrecognizedClient"), code == "InvalidSignatureException":
		return "AWS credentials are invalid. Please check your access keys."
	case code != "":
		var apiErr smithy.APIError
		errors.As(err, &apiErr)
		return fmt.Sprintf("AWS service error (%s): %s", code, apiErr.ErrorMessage())
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return "AWS service did not respond in time."
		}
		return err.Error()
	}
}
