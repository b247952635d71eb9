package prompts

import (
	"fmt"
	"strings"

	"github.com/forjaquest/forja-engine/pkg/profile"
	"github.com/forjaquest/forja-engine/pkg/scenario"
)

// Builder constructs the narration context using a fluent interface.
// Build output is deterministic for identical inputs.
type Builder struct {
	scene       *scenario.Scenario
	segmentFrom string
	segmentTo   string
	prof        *profile.Profile
	playerInput string
}

// New creates an empty prompt builder.
func New() *Builder {
	return &Builder{}
}

// WithScene sets the current scenario node.
func (b *Builder) WithScene(s *scenario.Scenario) *Builder {
	b.scene = s
	return b
}

// WithSegmentWindow bounds the narration: from is the next unrevealed
// segment, to is the segment after it. Either may be empty.
func (b *Builder) WithSegmentWindow(from, to string) *Builder {
	b.segmentFrom = from
	b.segmentTo = to
	return b
}

// WithProfile sets the accumulated player profile. Profiles that never
// completed an extraction are omitted from the output entirely.
func (b *Builder) WithProfile(p *profile.Profile) *Builder {
	b.prof = p
	return b
}

// WithPlayerInput sets the literal latest player input.
func (b *Builder) WithPlayerInput(input string) *Builder {
	b.playerInput = input
	return b
}

// Build assembles the context in fixed order: rule block, scene name,
// segment window, profile, player input. The player input line is
// always present.
func (b *Builder) Build() (string, error) {
	if b.playerInput == "" {
		return "", fmt.Errorf("player input is required")
	}

	var sb strings.Builder
	sb.WriteString(NarrationRules)

	if b.scene != nil {
		sb.WriteString("\n\nCENA ATUAL: " + b.scene.Name)
	}

	if b.segmentFrom != "" {
		sb.WriteString("\n\nTRECHO A NARRAR:\nComece em: " + strings.TrimSpace(b.segmentFrom))
		if b.segmentTo != "" {
			sb.WriteString("\nPare antes de: " + strings.TrimSpace(b.segmentTo))
		}
	}

	if b.prof != nil && b.prof.Completed() {
		sb.WriteString("\n\nPERFIL DOS JOGADORES:\n")
		sb.WriteString(strings.Join(b.prof.Lines(), "\n"))
	}

	sb.WriteString("\n\nENTRADA DO JOGADOR: " + b.playerInput)
	return sb.String(), nil
}

// BuildContext is a convenience for the common case.
func BuildContext(
	scene *scenario.Scenario,
	segmentFrom, segmentTo string,
	prof *profile.Profile,
	playerInput string,
) (string, error) {
	return New().
		WithScene(scene).
		WithSegmentWindow(segmentFrom, segmentTo).
		WithProfile(prof).
		WithPlayerInput(playerInput).
		Build()
}
