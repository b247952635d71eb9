// Package session models a player's traversal of a game: the session
// record itself, the interaction exchanges, and the ordered interaction
// log with its optimistic pending/replace/error lifecycle.
package session

import "time"

// Status is the session lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Session is one player's (or room's) traversal of a game. The backend
// owns the record; current_scenario_id is authoritative server state.
type Session struct {
	ID                int       `json:"id"`
	GameID            int       `json:"game_id,omitempty"`
	PlayerID          int       `json:"player_id,omitempty"`
	RoomID            *int      `json:"room_id,omitempty"`
	CurrentScenarioID *int      `json:"current_scenario_id,omitempty"`
	CurrentPhase      int       `json:"current_phase"`
	Status            Status    `json:"status"`
	LLMProvider       string    `json:"llm_provider,omitempty"`
	LLMModel          string    `json:"llm_model,omitempty"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
	LastActivity      time.Time `json:"last_activity,omitempty"`
}

// IsActive reports whether the session accepts interactions.
func (s *Session) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// ScenarioID returns the current scenario ID, or 0 when unset.
func (s *Session) ScenarioID() int {
	if s == nil || s.CurrentScenarioID == nil {
		return 0
	}
	return *s.CurrentScenarioID
}
