package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/greatwhitesecurity/opshub/internal/container"
	"github.com/greatwhitesecurity/opshub/internal/messaging"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	opts := &container.Options{
		RedisAddr:                 getEnv("SERVICE_REDIS_ADDR", "localhost:6379"),
		LogFormat:                 getEnv("SERVICE_LOG_FORMAT", "console"),
		LogLevel:                  getEnv("SERVICE_LOG_LEVEL", "info"),
		Storage:                   getEnv("SERVICE_STORAGE", container.StorageMemory),
		DatabaseURL:               os.Getenv("SERVICE_DATABASE_URL"),
		EventsBackend:             container.EventsRedis,
		LinkRetentionDays:         7,
		AvailabilityRetentionDays: 30,
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.RepositoryPackage(injector)
	container.ConsumerGroupPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)
	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	logger.Info("audit consumers running", zap.String("storage", opts.Storage))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}
