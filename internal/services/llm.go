package services

import "context"

// LLMService defines the interface for the narrating model used by the
// local backend. The production backend runs its own models.
type LLMService interface {
	// InitModel prepares the model on startup.
	InitModel(ctx context.Context, modelName string) error

	// Narrate generates a narration for the player input given the full
	// prompt context as system prompt.
	Narrate(ctx context.Context, systemPrompt, playerInput string) (string, error)
}
