package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forjaquest/forja-engine/internal/config"
	"github.com/forjaquest/forja-engine/internal/logger"
	"github.com/forjaquest/forja-engine/internal/services/events"
	"github.com/forjaquest/forja-engine/internal/storage"
	"github.com/forjaquest/forja-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Forja Engine Monitor",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	store := storage.NewRedisStore(cfg.RedisURL, cfg.DataDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	broadcaster := events.NewBroadcaster(redisClient, log)

	monitor := worker.New(store, broadcaster, redisClient, log, "")

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Monitor is shutting down...")
		cancel()
	}()

	if err := monitor.Run(ctx); err != nil {
		log.Error("Monitor exited with error", "error", err)
		os.Exit(1)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing redis client", "error", err)
	}

	log.Info("Monitor exited")
}
