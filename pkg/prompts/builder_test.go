package prompts

import (
	"strings"
	"testing"

	"github.com/forjaquest/forja-engine/pkg/profile"
	"github.com/forjaquest/forja-engine/pkg/scenario"
)

func TestBuildFullContext(t *testing.T) {
	scene := &scenario.Scenario{ID: 2, Name: "Cena 0A - Portal da Água"}
	var prof profile.Profile
	prof.Merge(profile.Extract("Jogador 1: Ana, 9 anos. Somos 1 jogador"))

	got, err := New().
		WithScene(scene).
		WithSegmentWindow("O portal brilha. O que vocês fazem? ", "Uma voz ecoa?").
		WithProfile(&prof).
		WithPlayerInput("entramos no portal").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Fixed section order: rules, scene, segment window, profile, input.
	sections := []string{
		NarrationRules,
		"CENA ATUAL: Cena 0A - Portal da Água",
		"TRECHO A NARRAR:\nComece em: O portal brilha. O que vocês fazem?",
		"Pare antes de: Uma voz ecoa?",
		"PERFIL DOS JOGADORES:\nJogador 1: Ana, 9 anos\nTotal de jogadores: 1",
		"ENTRADA DO JOGADOR: entramos no portal",
	}
	pos := 0
	for _, section := range sections {
		idx := strings.Index(got[pos:], section)
		if idx < 0 {
			t.Fatalf("section %q missing or out of order in:\n%s", section, got)
		}
		pos += idx + len(section)
	}
}

func TestBuildDeterministic(t *testing.T) {
	scene := &scenario.Scenario{Name: "Cena 01 - Temperança"}
	a, err := BuildContext(scene, "from", "to", nil, "olá")
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildContext(scene, "from", "to", nil, "olá")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Build is not deterministic for identical inputs")
	}
}

func TestBuildOmitsIncompleteProfile(t *testing.T) {
	var prof profile.Profile
	prof.Merge(profile.Extract("nada útil aqui"))

	got, err := New().
		WithScene(&scenario.Scenario{Name: "Introdução"}).
		WithProfile(&prof).
		WithPlayerInput("oi").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "PERFIL DOS JOGADORES") {
		t.Error("incomplete profile leaked into context")
	}
}

func TestBuildRequiresPlayerInput(t *testing.T) {
	if _, err := New().WithScene(&scenario.Scenario{Name: "Introdução"}).Build(); err == nil {
		t.Error("expected error without player input")
	}
}

func TestBuildWithoutSceneOrSegments(t *testing.T) {
	got, err := New().WithPlayerInput("olá").Build()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, NarrationRules) {
		t.Error("rule block missing")
	}
	if !strings.HasSuffix(got, "ENTRADA DO JOGADOR: olá") {
		t.Errorf("player input line missing: %q", got)
	}
	if strings.Contains(got, "CENA ATUAL") || strings.Contains(got, "TRECHO A NARRAR") {
		t.Error("empty sections rendered")
	}
}
