package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ajiri/internal/ai"
	"ajiri/internal/config"
	"ajiri/internal/metrics"
	"ajiri/internal/model"
	"ajiri/internal/ocr"
	"ajiri/internal/platform/awsclient"
	mysqlClient "ajiri/internal/platform/mysql"
	"ajiri/internal/platform/objectstore"
	rabbitmqClient "ajiri/internal/platform/rabbitmq"
	redisClient "ajiri/internal/platform/redis"
	sqliteClient "ajiri/internal/platform/sqlite"
	"ajiri/internal/repository"
	"ajiri/internal/worker"
)

type App struct {
	Config         *config.Config
	DB             *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	UsagePublisher *rabbitmqClient.UsagePublisher
	UsageWorker    *worker.UsagePersistWorker
	OCR            ocr.Engine
	LLM            ai.Answerer
	Store          *objectstore.MinioStore
	Metrics        *metrics.Collector

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

// NewWithConfig wires every dependency the config enables. Redis, RabbitMQ
// and object storage are optional; the database and AWS clients are not.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:    cfg,
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}

	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db

	awsCfg, err := awsclient.LoadConfig(ctx, cfg.AWS)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.OCR = ocr.NewTextractEngine(awsCfg, time.Duration(cfg.AWS.TextractTimeoutSecond)*time.Second)
	if cfg.Bedrock.Enabled {
		a.LLM = ai.NewBedrockClient(awsCfg, cfg.Bedrock)
	} else {
		slog.Info("bedrock disabled, chat answers are canned")
		a.LLM = ai.DisabledClient{}
	}

	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.UsagePublisher = rabbitmqClient.NewUsagePublisher(a.MQConn, cfg.RabbitMQ.UsageQueue)
		a.UsageWorker = worker.NewUsagePersistWorker(a.MQConn, repository.NewUsageRepository(a.DB), cfg.RabbitMQ.UsageQueue)
		if err := a.UsageWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start usage worker failed: %w", err)
		}
	}

	if cfg.Storage.Enabled {
		a.Store, err = objectstore.New(ctx, cfg.Storage)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	return a, nil
}

// OpenDatabase opens the configured driver and migrates every table.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlClient.New(ctx, cfg.MySQLDSN())
	default:
		db, err = sqliteClient.New(ctx, cfg.Database.SQLitePath)
	}
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return db, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.UsageWorker != nil {
		a.UsageWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
