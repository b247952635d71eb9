//go:build integration
// +build integration

// End-to-end exercise of the local backend and the console's client
// stack: real handlers over httptest, Redis via miniredis, and the
// orchestrator driving the full first-session flow.
package integration

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/forjaquest/forja-engine/internal/handlers"
	"github.com/forjaquest/forja-engine/internal/orchestrator"
	"github.com/forjaquest/forja-engine/internal/services"
	"github.com/forjaquest/forja-engine/internal/storage"
	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func forgeExport() []scenario.Scenario {
	return []scenario.Scenario{
		{ID: 1, Name: "Introdução", Phase: 1, Order: 0, ImageURL: "media/intro.png",
			FileContent: "Bem-vindos à Forja. Quantos jogadores são? Qual elemento escolhem?"},
		{ID: 2, Name: "Cena 0A - Portal da Água", Phase: 1, Order: 1, ImageURL: "media/agua.png",
			FileContent: "A correnteza chama. O que fazem?"},
		{ID: 3, Name: "Cena 0B - Clareira", Phase: 1, Order: 2,
			FileContent: "A clareira se abre diante de vocês. O que fazem?"},
		{ID: 4, Name: "Cena 01 - Temperança", Phase: 2, Order: 3},
	}
}

// startBackend assembles the local backend exactly as cmd/api does.
func startBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	dataDir := t.TempDir()

	data, err := json.Marshal(forgeExport())
	if err != nil {
		t.Fatalf("marshal export: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "scenarios.json"), data, 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}

	log := testLogger()
	store := storage.NewRedisStore(mr.Addr(), dataDir, log)
	t.Cleanup(func() { _ = store.Close() })

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, log))
	mux.Handle("/api/sessions/", handlers.NewSessionsHandler(store, nil, log))
	mux.Handle("/api/game/config/scenarios", handlers.NewScenariosHandler(store, log))
	mux.Handle("/api/game/", handlers.NewGameHandler(store, nil, nil, log))
	mux.Handle("/api/llm/active", handlers.NewLLMHandler(services.LLMConfig{Provider: "scripted", ModelName: "roteiro"}, log))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFullSessionFlow(t *testing.T) {
	server := startBackend(t)
	client := services.NewAPIClient(server.URL, testLogger())
	orch := orchestrator.New(client, testLogger())
	ctx := context.Background()

	// First run: no sessions exist, so one is created at the intro.
	if err := orch.Initialize(ctx, 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if orch.Session() == nil || orch.Session().ScenarioID() != 1 {
		t.Fatalf("session = %+v", orch.Session())
	}
	if !orch.Log().HasIntro() {
		t.Fatal("fresh session has no intro")
	}

	// The element choice moves server state to the water portal and
	// splices a scene card before the confirmed interaction.
	res := orch.SendText(ctx, "escolhemos o portal da água")
	if res.Err != nil {
		t.Fatalf("SendText: %v", res.Err)
	}
	if !res.SceneChanged || res.Scenario == nil || res.Scenario.ID != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Interaction.AIResponse == "" {
		t.Error("empty narration")
	}

	// Completing the portal scene advances to the clearing.
	res = orch.SendText(ctx, "finalizamos, terminei o ritual")
	if res.Err != nil {
		t.Fatalf("SendText: %v", res.Err)
	}
	if orch.Session().ScenarioID() != 3 {
		t.Errorf("scenario = %d, want clearing (3)", orch.Session().ScenarioID())
	}

	// Pause, then make sure a second client resumes the same session
	// with full history.
	if err := orch.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	second := orchestrator.New(client, testLogger())
	if err := second.Initialize(ctx, 1, 0, orch.Session().ID); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if second.Session().Status != session.StatusPaused {
		t.Errorf("status = %s, want paused", second.Session().Status)
	}
	if err := second.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if second.Log().Len() != 2 {
		t.Errorf("resumed log has %d entries, want 2 confirmed interactions", second.Log().Len())
	}
	if second.Log().HasIntro() {
		t.Error("resumed session re-seeded the intro")
	}
}

func TestInteractRejectedWhilePaused(t *testing.T) {
	server := startBackend(t)
	client := services.NewAPIClient(server.URL, testLogger())
	orch := orchestrator.New(client, testLogger())
	ctx := context.Background()

	if err := orch.Initialize(ctx, 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := orch.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	res := orch.SendText(ctx, "olá")
	if res.Err == nil {
		t.Fatal("paused session accepted an interaction")
	}
	last := orch.Log().Last()
	if last == nil || last.Kind != session.EntryFailed {
		t.Errorf("last entry = %+v, want failed", last)
	}
}
