// server runs the token authority HTTP service.
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

	"go.uber.org/zap"

	"token-authority/internal/audit"
	"token-authority/internal/authority"
	"token-authority/internal/config"
	"token-authority/internal/db"
	"token-authority/internal/kvstore"
	"token-authority/internal/obs"
	"token-authority/internal/profile"
	"token-authority/internal/security"
	"token-authority/internal/server"
	"token-authority/internal/session"
	userrepo "token-authority/internal/user/repository"
	userservice "token-authority/internal/user/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := obs.NewLogger(obs.LogConfig{
		Level:  "info",
		Pretty: cfg.Env == "development",
		App:    "token-authority",
		Env:    cfg.Env,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otel, err := obs.SetupOTel(ctx, obs.OTELConfig{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "token-authority",
		SampleRatio: 1,
	})
	if err != nil {
		logger.Fatal("otel setup failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otel.Shutdown(shutdownCtx)
	}()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	pool, err := db.New(ctx, db.Config{URL: cfg.DatabaseURL, QueryTimeout: 5 * time.Second})
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer pool.Close()

	store, err := kvstore.NewRedis(ctx, kvstore.RedisConfig{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err != nil {
		logger.Fatal("redis connect failed", zap.Error(err))
	}
	defer store.Close()

	key, err := security.ParseSigningKey(cfg.JWTSecretKey)
	if err != nil {
		logger.Fatal("signing key invalid", zap.Error(err))
	}
	codec, err := security.NewCodec(key, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		logger.Fatal("token codec invalid", zap.Error(err))
	}

	guard := session.NewGuard(store)
	cache := profile.NewCache(store, cfg.CacheTTL())
	hasher := security.NewHasher(cfg.BcryptCost)
	repo := userrepo.NewPostgresRepository(pool)

	emitter := audit.NewKafkaEmitter(cfg.KafkaBrokersList(), cfg.AuditTopic)
	if emitter != nil {
		defer emitter.Close()
	}
	var events audit.Emitter
	if emitter != nil {
		events = emitter
	}

	auth := authority.NewService(repo, hasher, codec, guard, cache, events, logger)
	users := userservice.NewService(repo, hasher, cache, logger)
	metrics := obs.NewAuthMetrics()

	health := func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		return store.Ping(ctx)
	}

	srv := server.New(auth, users, metrics, health, logger)
	httpServer := srv.NewHTTPServer(cfg.HTTPAddr)

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("stopped")
}
