package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/paraglide/config"
	"github.com/Domenick1991/paraglide/internal/app"
	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/email"
	"github.com/Domenick1991/paraglide/internal/kafka"
	"github.com/Domenick1991/paraglide/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	locale, err := domain.ParseLocale(cfg.App.DefaultLocale)
	if err != nil {
		logger.Fatal("invalid default locale", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()

	var sender email.Sender
	if cfg.Worker.SMTP.Host != "" {
		sender = email.NewSMTPSender(cfg.Worker.SMTP)
	} else {
		if err := producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka not reachable yet", zap.Error(err))
		}
		sender = email.NewTopicSender(producer, cfg.Worker.NoticesTopic, cfg.Worker.MaxRetries)
	}

	notifier := email.NewNotifier(repository.NewCompanyRepository(pool), sender, cfg.Worker.NoticeFrom, locale, logger)

	// A stable group: each insert is noticed once across worker replicas.
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Worker.GroupID, cfg.Kafka.BookingChangesTopic, kafka.FromEarliest())
	defer consumer.Close()

	logger.Info("notice worker started", zap.String("group_id", cfg.Worker.GroupID))

	err = consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
		ev, err := kafka.DecodeChange(msg)
		if err != nil {
			logger.Warn("skipping change message", zap.Int64("offset", msg.Offset), zap.Error(err))
			return nil
		}
		if err := notifier.Handle(ctx, ev); err != nil {
			logger.Error("booking notice failed", zap.String("booking_id", ev.Row.ID), zap.Error(err))
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
	logger.Info("notice worker stopped")
}
