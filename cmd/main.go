package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusmarket/backend/internal/api/handler"
	"campusmarket/backend/internal/auth"
	"campusmarket/backend/internal/chathub"
	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/events"
	"campusmarket/backend/internal/httpclient"
	"campusmarket/backend/internal/identity"
	"campusmarket/backend/internal/logger"
	"campusmarket/backend/internal/marketplace"
	"campusmarket/backend/internal/media"
	"campusmarket/backend/internal/messaging"
	"campusmarket/backend/internal/ratelimit"
	"campusmarket/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("failed to connect Redis", zap.Error(err))
	}

	log.Info("database and redis connections established")
	return db, rdb
}

type limiters struct {
	send, read, profile ratelimit.Limiter
}

// buildLimiters returns process-local windows, or Redis-backed windows shared
// between API processes.
func buildLimiters(ctx context.Context, cfg config.RateLimitConfig, rdb *redis.Client) limiters {
	if cfg.Backend == "redis" {
		return limiters{
			send:    ratelimit.NewRedis(rdb, "send", cfg.SendLimit, config.Window(cfg.SendWindowSec)),
			read:    ratelimit.NewRedis(rdb, "read", cfg.ReadLimit, config.Window(cfg.ReadWindowSec)),
			profile: ratelimit.NewRedis(rdb, "profile", cfg.ProfileLimit, config.Window(cfg.ProfileWindowSec)),
		}
	}

	mk := func(limit, windowSec int) ratelimit.Limiter {
		m := ratelimit.NewMemory(limit, config.Window(windowSec), ratelimit.WithMaxEntries(config.RateLimitMaxEntries))
		go m.Run(ctx, config.RateLimitSweepPeriod)
		return m
	}
	return limiters{
		send:    mk(cfg.SendLimit, cfg.SendWindowSec),
		read:    mk(cfg.ReadLimit, cfg.ReadWindowSec),
		profile: mk(cfg.ProfileLimit, cfg.ProfileWindowSec),
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Stderr.WriteString("warning: could not read .env: " + err.Error() + "\n")
	}

	cfg, err := config.Load(os.Getenv("APP_CONFIG"))
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Server.Development)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting campusmarket backend", zap.String("addr", cfg.Server.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, rdb := setupDependencies(ctx, cfg, log)
	store := storage.NewStorageService(db, rdb, logger.Component(log, "storage"))
	if err := store.Migrate(); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	lim := buildLimiters(ctx, cfg.RateLimit, rdb)

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Component(log, "events"))
	defer publisher.Close()

	var images *media.Images
	if cfg.Media.Bucket != "" {
		s3store, err := media.NewS3Store(ctx, cfg.Media.Region, cfg.Media.Bucket, cfg.Media.Endpoint)
		if err != nil {
			log.Fatal("failed to configure media storage", zap.Error(err))
		}
		images = media.NewImages(s3store)
	} else {
		log.Warn("media.bucket not set, image uploads disabled")
	}

	hc := httpclient.DefaultConfig()
	hc.RetryMaxElapsed = config.Window(cfg.Identity.RetryMaxElapsedSec)
	verifier := identity.NewClient(identity.Options{
		URL:            cfg.Identity.URL,
		APIKey:         cfg.Identity.APIKey,
		AllowedDomains: cfg.Auth.AllowedDomains,
		HTTP:           httpclient.NewClient(hc),
	}, logger.Component(log, "identity"))
	tokens := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.TokenTTL)

	msgLog := logger.Component(log, "messaging")
	messages := messaging.NewService(messaging.Deps{
		Gateway:     messaging.NewGateway(store, store, msgLog),
		SendLimiter: lim.send,
		ReadLimiter: lim.read,
		Feed:        store,
		Events:      publisher,
		Logger:      msgLog,
	})
	market := marketplace.NewService(marketplace.Deps{
		Items:          store,
		Users:          store,
		Images:         images,
		Events:         publisher,
		ReadLimiter:    lim.read,
		ProfileLimiter: lim.profile,
		Logger:         logger.Component(log, "marketplace"),
	})

	hub := chathub.NewHub(store, logger.Component(log, "hub"))
	go hub.Run(ctx)

	if !cfg.Server.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(handler.Handler{
		Messages:     messages,
		Market:       market,
		Accounts:     marketplace.NewAccounts(store, verifier, tokens, logger.Component(log, "accounts")),
		Hub:          hub,
		Tokens:       tokens,
		LoginLimiter: ratelimit.NewPerMinute(cfg.RateLimit.LoginPerMinute),
		Logger:       logger.Component(log, "http"),
	})

	server := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        h.Router(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		log.Warn("closing redis", zap.Error(err))
	}
}
