package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/session"
)

const (
	sessionKeyPrefix     = "session:"
	sessionIndexKey      = "sessions"
	sessionSeqKey        = "session:seq"
	interactionKeyPrefix = "interactions:"
	interactionSeqKey    = "interaction:seq"
)

// RedisStore implements Store using Redis for session state and the
// filesystem for the scenario catalog export.
type RedisStore struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis store instance
func NewRedisStore(redisURL string, dataDir string, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	if dataDir == "" {
		dataDir = "./data"
	}

	return &RedisStore{
		client:  rdb,
		logger:  logger,
		dataDir: dataDir,
	}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations (Redis-backed)

func (r *RedisStore) CreateSession(ctx context.Context, s *session.Session) error {
	id, err := r.client.Incr(ctx, sessionSeqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate session id: %w", err)
	}
	s.ID = int(id)
	s.CreatedAt = time.Now()
	s.LastActivity = s.CreatedAt

	if err := r.writeSession(ctx, s); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, sessionIndexKey, s.ID).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

func (r *RedisStore) GetSession(ctx context.Context, id int) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+strconv.Itoa(id)).Result()
	if err != nil {
		if err == redis.Nil {
			r.logger.Warn("Session not found", "session_id", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) SaveSession(ctx context.Context, s *session.Session) error {
	s.LastActivity = time.Now()
	return r.writeSession(ctx, s)
}

func (r *RedisStore) writeSession(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	key := sessionKeyPrefix + strconv.Itoa(s.ID)
	if err := r.client.Set(ctx, key, string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save session", "session_id", s.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) ListSessions(ctx context.Context) ([]session.Session, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]session.Session, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		s, err := r.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			sessions = append(sessions, *s)
		}
	}
	return sessions, nil
}

// Interaction operations (Redis-backed, newest first)

func (r *RedisStore) AppendInteraction(ctx context.Context, in *session.Interaction) error {
	id, err := r.client.Incr(ctx, interactionSeqKey).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate interaction id: %w", err)
	}
	in.ID = int(id)
	in.CreatedAt = time.Now()

	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction: %w", err)
	}

	key := interactionKeyPrefix + strconv.Itoa(in.SessionID)
	if err := r.client.LPush(ctx, key, string(data)).Err(); err != nil {
		r.logger.Error("Failed to append interaction", "session_id", in.SessionID, "error", err)
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	return nil
}

func (r *RedisStore) ListInteractions(ctx context.Context, sessionID int) ([]session.Interaction, error) {
	key := interactionKeyPrefix + strconv.Itoa(sessionID)
	raw, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}

	interactions := make([]session.Interaction, 0, len(raw))
	for _, item := range raw {
		var in session.Interaction
		if err := json.Unmarshal([]byte(item), &in); err != nil {
			r.logger.Warn("Skipping malformed interaction record", "session_id", sessionID, "error", err)
			continue
		}
		interactions = append(interactions, in)
	}
	return interactions, nil
}

// Scenario operations (filesystem-backed)

// LoadScenarios reads the scenario catalog export from
// <dataDir>/scenarios.json and returns it ordered by (phase, order).
func (r *RedisStore) LoadScenarios(ctx context.Context) ([]scenario.Scenario, error) {
	path := filepath.Join(r.dataDir, "scenarios.json")

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scenario export not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read scenario export: %w", err)
	}

	var scenarios []scenario.Scenario
	if err := json.Unmarshal(file, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario export: %w", err)
	}

	scenario.SortByOrder(scenarios)
	return scenarios, nil
}
