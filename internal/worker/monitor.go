// Package worker runs the session activity monitor: a long-lived
// process that follows every session's event channel and keeps a
// room-facing activity record in Redis, so facilitator dashboards can
// read the current scene without polling the API.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/forjaquest/forja-engine/internal/services/events"
	"github.com/forjaquest/forja-engine/internal/storage"
)

const (
	// How often the monitor discovers new sessions to follow.
	discoverInterval = 5 * time.Second

	activityKeyPrefix = "activity:"
)

// Monitor follows session event channels and mirrors the latest
// activity per session into a Redis hash.
type Monitor struct {
	id          string
	store       storage.Store
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger

	mu        sync.Mutex
	following map[int]context.CancelFunc
}

// New creates a monitor instance. An empty monitorID gets a generated
// one.
func New(store storage.Store, broadcaster *events.Broadcaster, redisClient *redis.Client, log *slog.Logger, monitorID string) *Monitor {
	if monitorID == "" {
		monitorID = fmt.Sprintf("monitor-%s", uuid.New().String()[:8])
	}
	return &Monitor{
		id:          monitorID,
		store:       store,
		broadcaster: broadcaster,
		redisClient: redisClient,
		log:         log,
		following:   make(map[int]context.CancelFunc),
	}
}

// Run discovers sessions and follows their event channels until ctx is
// cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("Monitor starting", "monitor_id", m.id)

	ticker := time.NewTicker(discoverInterval)
	defer ticker.Stop()

	for {
		if err := m.discover(ctx); err != nil {
			m.log.Error("Session discovery failed", "error", err, "monitor_id", m.id)
		}

		select {
		case <-ctx.Done():
			m.log.Info("Monitor shutting down", "monitor_id", m.id)
			m.stopAll()
			return nil
		case <-ticker.C:
		}
	}
}

// discover starts following sessions that appeared since the last pass.
func (m *Monitor) discover(ctx context.Context) error {
	sessions, err := m.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sessions {
		if _, ok := m.following[s.ID]; ok {
			continue
		}
		subCtx, cancel := context.WithCancel(ctx)
		ch, err := m.broadcaster.Subscribe(subCtx, s.ID)
		if err != nil {
			cancel()
			m.log.Warn("Failed to subscribe to session events", "session_id", s.ID, "error", err)
			continue
		}
		m.following[s.ID] = cancel
		m.log.Info("Following session", "session_id", s.ID, "monitor_id", m.id)
		go m.follow(subCtx, s.ID, ch)
	}
	return nil
}

// follow applies one session's events to its activity record.
func (m *Monitor) follow(ctx context.Context, sessionID int, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := m.record(ctx, sessionID, event); err != nil {
				m.log.Error("Failed to record activity", "session_id", sessionID, "error", err)
			}
		}
	}
}

// record mirrors the event into the session's activity hash.
func (m *Monitor) record(ctx context.Context, sessionID int, event events.Event) error {
	key := ActivityKey(sessionID)
	fields := map[string]interface{}{
		"last_event":    string(event.Type),
		"last_event_at": time.Now().Format(time.RFC3339),
	}
	if event.Type == events.EventTypeScenarioChanged {
		fields["scenario_id"] = strconv.Itoa(event.ScenarioID)
		fields["scenario_name"] = event.ScenarioName
	}
	if err := m.redisClient.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to write activity record: %w", err)
	}
	if event.Type == events.EventTypeScenarioChanged {
		if err := m.redisClient.HIncrBy(ctx, key, "scene_changes", 1).Err(); err != nil {
			return fmt.Errorf("failed to bump scene counter: %w", err)
		}
	}
	return nil
}

func (m *Monitor) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cancel := range m.following {
		cancel()
		delete(m.following, id)
	}
}

// ActivityKey returns the Redis key of a session's activity hash.
func ActivityKey(sessionID int) string {
	return activityKeyPrefix + strconv.Itoa(sessionID)
}
