// Command test-publish emits a synthetic session event, for exercising
// the monitor and any dashboard subscribers during development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forjaquest/forja-engine/internal/config"
	"github.com/forjaquest/forja-engine/internal/logger"
	"github.com/forjaquest/forja-engine/internal/services/events"
)

func main() {
	sessionID := flag.Int("session", 1, "session ID to publish for")
	scenarioID := flag.Int("scenario", 2, "scenario ID carried by the event")
	scenarioName := flag.String("name", "Cena 0A - Portal da Água", "scenario name carried by the event")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	slogger := logger.Setup(cfg)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	defer func() {
		_ = redisClient.Close()
	}()

	broadcaster := events.NewBroadcaster(redisClient, slogger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := broadcaster.PublishScenarioChanged(ctx, *sessionID, *scenarioID, *scenarioName); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to publish event: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Published scenario change for session %d: %s\n", *sessionID, *scenarioName)
}
