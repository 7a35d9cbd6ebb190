package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/paraglide/api"
	"github.com/Domenick1991/paraglide/config"
	"github.com/Domenick1991/paraglide/internal/app"
	"github.com/Domenick1991/paraglide/internal/auth"
	"github.com/Domenick1991/paraglide/internal/bootstrap"
	"github.com/Domenick1991/paraglide/internal/cache"
	"github.com/Domenick1991/paraglide/internal/dashboard"
	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/kafka"
	"github.com/Domenick1991/paraglide/internal/realtime"
	"github.com/Domenick1991/paraglide/internal/repository"
	"github.com/Domenick1991/paraglide/internal/service/booking"
	"github.com/Domenick1991/paraglide/internal/service/pilots"
	"github.com/Domenick1991/paraglide/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
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

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	defaultLocale, err := domain.ParseLocale(cfg.App.DefaultLocale)
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

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		logger.Fatal("init migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	_ = migrator.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.PilotsCacheTTLSeconds)*time.Second)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, continuing without shared cache", zap.Error(err))
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	defer producer.Close()

	// Every instance reads the whole change stream, so each gets its own group.
	groupID := cfg.Kafka.GroupID + "-" + uuid.NewString()
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, groupID, cfg.Kafka.BookingChangesTopic)
	defer consumer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	pilotRepo := repository.NewPilotRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)

	bookingService := booking.NewBookingService(
		bookingRepo,
		pilotRepo,
		companyRepo,
		producer,
		cfg.Kafka.BookingChangesTopic,
		booking.WithLockCache(redisCache, time.Duration(cfg.Booking.ProcessingLockSeconds)*time.Second),
		booking.WithLogger(logger),
	)
	pilotService := pilots.NewPilotService(pilotRepo, redisCache, logger)

	broker := realtime.NewBroker(logger)
	hub := ws.NewHub(func(sess domain.Session, sink dashboard.Sink) ws.Session {
		return dashboard.New(sess, bookingService, pilotService, broker, sink, dashboard.WithLogger(logger))
	}, cfg.HTTP.AllowedOrigins, logger)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, 24*time.Hour)
	router := api.NewRouter(
		api.RouterConfig{AllowedOrigins: cfg.HTTP.AllowedOrigins, DefaultLocale: defaultLocale},
		api.NewBookingHandler(bookingService, pilotService, logger),
		tokens,
		hub,
		logger,
	)

	logger.Info("starting paraglide",
		zap.String("env", cfg.App.Env),
		zap.String("changes_topic", cfg.Kafka.BookingChangesTopic),
		zap.String("group_id", groupID))

	if err := bootstrap.Run(ctx, cfg.HTTP.Address, router, logger, hub.Shutdown, bootstrap.Task{
		Name: "booking change stream",
		Run:  func(ctx context.Context) error { return broker.Run(ctx, consumer) },
	}); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
