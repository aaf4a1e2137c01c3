package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	config "github.com/groupbuy/campaign-service/configs"
	"github.com/groupbuy/campaign-service/internal/application/services"
	"github.com/groupbuy/campaign-service/internal/core/ports"
	"github.com/groupbuy/campaign-service/internal/infrastructure/db"
	"github.com/groupbuy/campaign-service/internal/infrastructure/health"
	"github.com/groupbuy/campaign-service/internal/infrastructure/httpserver"
	"github.com/groupbuy/campaign-service/internal/infrastructure/redis"
	"github.com/groupbuy/campaign-service/internal/infrastructure/repositories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(cfg.Log)
	logger.WithFields(logrus.Fields{
		"store":             cfg.Store.Backend,
		"rate_limit":        cfg.RateLimit.Backend,
		"rate_limit_max":    cfg.RateLimit.MaxRequests,
		"rate_limit_window": cfg.RateLimit.Window.String(),
	}).Info("starting campaign service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var checkers []ports.HealthChecker

	// Redis backs the shared ledger and, when present, the building cache.
	var redisClient *goredis.Client
	var cache ports.Cache
	if cfg.RateLimit.Backend == "redis" {
		redisClient, err = redis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisClient.Close()
		cache = redis.NewCache(redisClient, "campaigncache")
		checkers = append(checkers, health.NewRedisHealthChecker(redisClient))
		logger.Info("connected to redis")
	}

	var (
		buildingRepo   ports.BuildingRepository
		campaignRepo   ports.CampaignRepository
		orderRepo      ports.OrderRepository
		subscriberRepo ports.SubscriberRepository
	)
	switch cfg.Store.Backend {
	case "memory":
		store := repositories.NewMemoryStore()
		buildingRepo, campaignRepo, orderRepo, subscriberRepo = store.Buildings(), store.Campaigns(), store.Orders(), store.Subscribers()
		logger.Warn("using in-memory store; campaign counters are lost on restart")
	default:
		database, err := db.NewDatabaseWithConfig(&cfg.Database)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to database")
		}
		defer database.Close()
		if err := database.Migrate("./migrations"); err != nil {
			logger.WithError(err).Fatal("failed to run migrations")
		}
		buildingRepo = repositories.NewBuildingRepository(database, logger)
		campaignRepo = repositories.NewCampaignRepository(database, logger)
		orderRepo = repositories.NewOrderRepository(database, logger)
		subscriberRepo = repositories.NewSubscriberRepository(database, logger)
		checkers = append(checkers, health.NewDBHealthChecker(database))
		logger.WithField("driver", cfg.Database.Driver).Info("connected to database")
	}
	buildingRepo = repositories.NewCachingBuildingRepository(buildingRepo, cache, cfg.Cache.BuildingTTL)

	var ledger ports.RateLimitRepository
	if redisClient != nil {
		ledger = repositories.NewRateLimitRedisRepository(redisClient, cfg.RateLimit.KeyPrefix)
	} else {
		mem := repositories.NewRateLimitMemoryRepository(cfg.RateLimit.SweepGrace, logger)
		mem.StartJanitor(ctx, cfg.RateLimit.SweepInterval)
		ledger = mem
	}

	rateLimiterService := services.NewRateLimiterService(ledger, &services.RateLimiterConfig{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window,
		Scope:       cfg.RateLimit.Scope,
		FailOpen:    cfg.RateLimit.FailOpen,
	}, logger)
	campaignService := services.NewCampaignService(buildingRepo, campaignRepo, orderRepo, logger)
	admissionService := services.NewOrderAdmissionService(rateLimiterService, campaignService, subscriberRepo, logger)

	if cfg.Store.SeedCatalog {
		if _, err := campaignService.SeedCatalog(ctx); err != nil {
			logger.WithError(err).Fatal("failed to seed campaign catalog")
		}
	}

	server := httpserver.NewServer(&httpserver.ServerConfig{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		TLSCertFile:        cfg.Server.TLSCertFile,
		TLSKeyFile:         cfg.Server.TLSKeyFile,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		RemoteAddrFallback: cfg.RateLimit.RemoteAddrFallback,
		StoreBackend:       cfg.Store.Backend,
		LedgerBackend:      cfg.RateLimit.Backend,
	}, logger, httpserver.ServerDeps{
		CampaignService:       campaignService,
		OrderAdmissionService: admissionService,
		RateLimiterService:    rateLimiterService,
		HealthCheckers:        checkers,
	})

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	logger.Info("server exited")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
