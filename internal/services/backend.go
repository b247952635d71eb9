package services

import (
	"context"

	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/session"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// CreateSessionRequest carries the optional bindings for a new session.
type CreateSessionRequest struct {
	GameID      *int   `json:"game_id,omitempty"`
	RoomID      *int   `json:"room_id,omitempty"`
	LLMProvider string `json:"llm_provider,omitempty"`
	LLMModel    string `json:"llm_model,omitempty"`
	ScenarioID  *int   `json:"scenario_id,omitempty"`
}

// InteractRequest is a text interaction submission.
type InteractRequest struct {
	SessionID            int    `json:"session_id"`
	PlayerInput          string `json:"player_input"`
	PlayerInputType      string `json:"player_input_type"`
	IncludeAudioResponse bool   `json:"include_audio_response"`
}

// LLMConfig is the active provider/model binding exposed by the backend.
type LLMConfig struct {
	Provider  string `json:"provider"`
	ModelName string `json:"model_name"`
}

// Backend is the API surface the engine consumes. The production
// backend owns the exact shapes; APIClient implements this contract
// over HTTP and MockBackend implements it in memory for tests.
type Backend interface {
	// BaseURL returns the backend base URL, for media resolution.
	BaseURL() string

	// ListSessions returns the caller's sessions.
	ListSessions(ctx context.Context) ([]session.Session, error)

	// GetSession returns a single session with authoritative state.
	GetSession(ctx context.Context, id int) (*session.Session, error)

	// CreateSession creates a session with the given bindings.
	CreateSession(ctx context.Context, req CreateSessionRequest) (*session.Session, error)

	// PauseSession transitions a session to paused.
	PauseSession(ctx context.Context, id int) (*session.Session, error)

	// ResumeSession transitions a paused session back to active.
	ResumeSession(ctx context.Context, id int) (*session.Session, error)

	// ListScenarios returns the scenarios for a game, order ascending.
	ListScenarios(ctx context.Context, gameID int) ([]scenario.Scenario, error)

	// GetHistory returns a session's interactions, newest first.
	GetHistory(ctx context.Context, sessionID int) ([]session.Interaction, error)

	// SubmitText submits a text interaction and returns the confirmed
	// record.
	SubmitText(ctx context.Context, req InteractRequest) (*session.Interaction, error)

	// SubmitAudio submits an audio interaction as a multipart upload.
	SubmitAudio(ctx context.Context, sessionID int, audio []byte, filename string, includeAudio bool) (*session.Interaction, error)

	// ActiveLLMConfig returns the active LLM binding, optionally scoped
	// by game (0 for unscoped).
	ActiveLLMConfig(ctx context.Context, gameID int) (*LLMConfig, error)
}
