// Package events publishes session lifecycle events to Redis Pub/Sub,
// giving facilitator tooling an explicit subscription interface instead
// of ambient shared state.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeSessionCreated  EventType = "session.created"
	EventTypeSessionPaused   EventType = "session.paused"
	EventTypeSessionResumed  EventType = "session.resumed"
	EventTypeScenarioChanged EventType = "session.scenario_changed"
)

// Event is the wire shape published per session channel.
type Event struct {
	Type         EventType `json:"type"`
	SessionID    int       `json:"session_id"`
	ScenarioID   int       `json:"scenario_id,omitempty"`
	ScenarioName string    `json:"scenario_name,omitempty"`
}

// Broadcaster publishes session events to Redis Pub/Sub.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

func channelName(sessionID int) string {
	return fmt.Sprintf("session-events:%d", sessionID)
}

// Publish sends an event on the session's channel. Publishing is
// best-effort: callers log and continue on error.
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channelName(event.SessionID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Published session event",
		"type", event.Type,
		"session_id", event.SessionID)
	return nil
}

// PublishScenarioChanged publishes a scenario transition for a session.
func (b *Broadcaster) PublishScenarioChanged(ctx context.Context, sessionID, scenarioID int, scenarioName string) error {
	return b.Publish(ctx, Event{
		Type:         EventTypeScenarioChanged,
		SessionID:    sessionID,
		ScenarioID:   scenarioID,
		ScenarioName: scenarioName,
	})
}

// Subscribe listens for events on a session's channel and delivers them
// until the context is cancelled. Undecodable payloads are logged and
// skipped.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID int) (<-chan Event, error) {
	sub := b.redisClient.Subscribe(ctx, channelName(sessionID))
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("Dropping undecodable session event", "error", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
