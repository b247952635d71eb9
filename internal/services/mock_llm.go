package services

import (
	"context"
	"fmt"
)

// MockLLMService is a configurable LLMService for tests.
type MockLLMService struct {
	Responses []string
	Err       error

	NarrateCalls []string // system prompts received, in order
	next         int
}

var _ LLMService = (*MockLLMService)(nil)

func NewMockLLMService(responses ...string) *MockLLMService {
	return &MockLLMService{Responses: responses}
}

func (m *MockLLMService) InitModel(ctx context.Context, modelName string) error {
	return m.Err
}

func (m *MockLLMService) Narrate(ctx context.Context, systemPrompt, playerInput string) (string, error) {
	m.NarrateCalls = append(m.NarrateCalls, systemPrompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.next >= len(m.Responses) {
		return "", fmt.Errorf("mock LLM has no response configured for call %d", m.next+1)
	}
	resp := m.Responses[m.next]
	m.next++
	return resp, nil
}
