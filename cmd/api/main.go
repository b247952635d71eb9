package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forjaquest/forja-engine/internal/config"
	"github.com/forjaquest/forja-engine/internal/handlers"
	"github.com/forjaquest/forja-engine/internal/logger"
	"github.com/forjaquest/forja-engine/internal/middleware"
	"github.com/forjaquest/forja-engine/internal/services"
	"github.com/forjaquest/forja-engine/internal/services/events"
	"github.com/forjaquest/forja-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Forja Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	store := storage.NewRedisStore(cfg.RedisURL, cfg.DataDir, log)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	// Fail fast when the scenario export is missing or malformed.
	if _, err := store.LoadScenarios(storageCtx); err != nil {
		log.Error("Failed to load scenario export", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	// Optional Ollama narrator. Without it the scripted narrator reveals
	// the scenario scripts directly.
	var llmService services.LLMService
	llmConfig := services.LLMConfig{Provider: "scripted", ModelName: "roteiro"}
	if cfg.OllamaURL != "" {
		ollama := services.NewOllamaService(cfg.OllamaURL, cfg.OllamaModel, log)

		initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer initCancel()
		if err := ollama.InitModel(initCtx, cfg.OllamaModel); err != nil {
			log.Error("Failed to initialize LLM model", "error", err, "model", cfg.OllamaModel)
			os.Exit(1)
		}
		llmService = ollama
		llmConfig = services.LLMConfig{Provider: "ollama", ModelName: cfg.OllamaModel}
		log.Info("Using Ollama narrator", "model", cfg.OllamaModel)
	}

	broadcaster := events.NewBroadcaster(redis.NewClient(&redis.Options{Addr: cfg.RedisURL}), log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	sessionsHandler := handlers.NewSessionsHandler(store, broadcaster, log)
	mux.Handle("/api/sessions/", sessionsHandler)

	scenariosHandler := handlers.NewScenariosHandler(store, log)
	mux.Handle("/api/game/config/scenarios", scenariosHandler)

	gameHandler := handlers.NewGameHandler(store, llmService, broadcaster, log)
	mux.Handle("/api/game/", gameHandler)

	llmHandler := handlers.NewLLMHandler(llmConfig, log)
	mux.Handle("/api/llm/active", llmHandler)

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
