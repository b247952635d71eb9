package services

import (
	"context"
	"fmt"
	"time"

	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/session"
)

// MockBackend is an in-memory Backend for tests. Transition behavior
// mirrors the real backend: SubmitText advances the stored session's
// current scenario through the compiled graph before confirming.
type MockBackend struct {
	Base      string
	Sessions  map[int]*session.Session
	Scenarios []scenario.Scenario
	History   map[int][]session.Interaction // newest first, keyed by session
	LLM       *LLMConfig

	// Error injection. When set, the corresponding call fails.
	FailSubmit   error
	FailSessions error
	FailPause    error

	// Delay before SubmitText returns, for stale-response tests.
	SubmitDelay time.Duration

	nextSessionID     int
	nextInteractionID int
}

var _ Backend = (*MockBackend)(nil)

// NewMockBackend creates an empty mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Base:              "http://mock.local",
		Sessions:          make(map[int]*session.Session),
		History:           make(map[int][]session.Interaction),
		nextSessionID:     1,
		nextInteractionID: 1,
	}
}

func (m *MockBackend) BaseURL() string {
	return m.Base
}

func (m *MockBackend) ListSessions(ctx context.Context) ([]session.Session, error) {
	if m.FailSessions != nil {
		return nil, m.FailSessions
	}
	out := make([]session.Session, 0, len(m.Sessions))
	for _, s := range m.Sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *MockBackend) GetSession(ctx context.Context, id int) (*session.Session, error) {
	if m.FailSessions != nil {
		return nil, m.FailSessions
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	out := *s
	return &out, nil
}

func (m *MockBackend) CreateSession(ctx context.Context, req CreateSessionRequest) (*session.Session, error) {
	if m.FailSessions != nil {
		return nil, m.FailSessions
	}
	s := &session.Session{
		ID:                m.nextSessionID,
		Status:            session.StatusActive,
		CurrentPhase:      1,
		CurrentScenarioID: req.ScenarioID,
		LLMProvider:       req.LLMProvider,
		LLMModel:          req.LLMModel,
		CreatedAt:         time.Now(),
		LastActivity:      time.Now(),
	}
	if req.GameID != nil {
		s.GameID = *req.GameID
	}
	s.RoomID = req.RoomID
	m.nextSessionID++
	m.Sessions[s.ID] = s
	out := *s
	return &out, nil
}

func (m *MockBackend) PauseSession(ctx context.Context, id int) (*session.Session, error) {
	if m.FailPause != nil {
		return nil, m.FailPause
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	s.Status = session.StatusPaused
	out := *s
	return &out, nil
}

func (m *MockBackend) ResumeSession(ctx context.Context, id int) (*session.Session, error) {
	s, ok := m.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	s.Status = session.StatusActive
	out := *s
	return &out, nil
}

func (m *MockBackend) ListScenarios(ctx context.Context, gameID int) ([]scenario.Scenario, error) {
	out := make([]scenario.Scenario, len(m.Scenarios))
	copy(out, m.Scenarios)
	scenario.SortByOrder(out)
	return out, nil
}

func (m *MockBackend) GetHistory(ctx context.Context, sessionID int) ([]session.Interaction, error) {
	out := make([]session.Interaction, len(m.History[sessionID]))
	copy(out, m.History[sessionID])
	return out, nil
}

func (m *MockBackend) SubmitText(ctx context.Context, req InteractRequest) (*session.Interaction, error) {
	if m.SubmitDelay > 0 {
		select {
		case <-time.After(m.SubmitDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.FailSubmit != nil {
		return nil, m.FailSubmit
	}
	s, ok := m.Sessions[req.SessionID]
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	if s.Status != session.StatusActive {
		return nil, fmt.Errorf("session is not active")
	}

	// Authoritative transition, like the real backend.
	g := scenario.Compile(m.Scenarios)
	current := g.ByID(s.ScenarioID())
	if current == nil {
		current = g.Intro()
	}
	if next := g.Next(current, req.PlayerInput); next != nil {
		id := next.ID
		s.CurrentScenarioID = &id
		s.CurrentPhase = next.Phase
	}
	s.LastActivity = time.Now()

	in := session.Interaction{
		ID:              m.nextInteractionID,
		SessionID:       req.SessionID,
		PlayerInput:     req.PlayerInput,
		PlayerInputType: req.PlayerInputType,
		AIResponse:      fmt.Sprintf("resposta %d", m.nextInteractionID),
		CreatedAt:       time.Now(),
	}
	m.nextInteractionID++
	m.History[req.SessionID] = append([]session.Interaction{in}, m.History[req.SessionID]...)
	return &in, nil
}

func (m *MockBackend) SubmitAudio(ctx context.Context, sessionID int, audio []byte, filename string, includeAudio bool) (*session.Interaction, error) {
	return m.SubmitText(ctx, InteractRequest{
		SessionID:            sessionID,
		PlayerInput:          "(transcrição de áudio)",
		PlayerInputType:      session.InputTypeAudio,
		IncludeAudioResponse: includeAudio,
	})
}

func (m *MockBackend) ActiveLLMConfig(ctx context.Context, gameID int) (*LLMConfig, error) {
	if m.LLM == nil {
		return nil, fmt.Errorf("no active LLM config")
	}
	return m.LLM, nil
}
