package session

import "time"

// Input types accepted by the backend.
const (
	InputTypeText  = "text"
	InputTypeAudio = "audio"
)

// Interaction is one confirmed request/response exchange as stored by
// the backend. Confirmed interactions are immutable snapshots.
type Interaction struct {
	ID                  int       `json:"id"`
	SessionID           int       `json:"session_id"`
	PlayerInput         string    `json:"player_input"`
	PlayerInputType     string    `json:"player_input_type"`
	AIResponse          string    `json:"ai_response"`
	AIResponseAudioURL  string    `json:"ai_response_audio_url,omitempty"`
	LLMProvider         string    `json:"llm_provider,omitempty"`
	LLMModel            string    `json:"llm_model,omitempty"`
	TokensUsed          int       `json:"tokens_used,omitempty"`
	Cost                float64   `json:"cost,omitempty"`
	ResponseTimeSeconds float64   `json:"response_time,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
