// worker consumes roster lookup requests from Kafka and answers them from
// the employee store. Set KAFKA_BROKERS, ROSTER_REQUEST_TOPIC,
// ROSTER_RESPONSE_TOPIC, ROSTER_GROUP_ID, and DATABASE_URL.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"token-authority/internal/config"
	"token-authority/internal/db"
	"token-authority/internal/obs"
	"token-authority/internal/roster"
	userrepo "token-authority/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	logger, err := obs.NewLogger(obs.LogConfig{
		Level:  "info",
		Pretty: cfg.Env == "development",
		App:    "token-authority-worker",
		Env:    cfg.Env,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, db.Config{URL: cfg.DatabaseURL, QueryTimeout: 10 * time.Second})
	if err != nil {
		logger.Fatal("postgres connect failed", zap.Error(err))
	}
	defer pool.Close()

	reader := roster.NewReader(brokers, cfg.RosterRequestTopic, cfg.RosterGroupID)
	defer reader.Close()
	writer := roster.NewWriter(brokers, cfg.RosterResponseTopic)
	defer writer.Close()

	consumer := roster.NewConsumer(userrepo.NewPostgresRepository(pool), writer, logger)

	logger.Info("worker consuming",
		zap.String("request_topic", cfg.RosterRequestTopic),
		zap.String("response_topic", cfg.RosterResponseTopic),
		zap.String("group", cfg.RosterGroupID))

	if err := consumer.Run(ctx, reader); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}
