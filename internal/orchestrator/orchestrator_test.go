package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/forjaquest/forja-engine/internal/services"
	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func forgeScenarios() []scenario.Scenario {
	return []scenario.Scenario{
		{ID: 1, Name: "Introdução", Phase: 1, Order: 0, ImageURL: "media/intro.png",
			FileContent: "Sejam bem-vindos à Forja. Quantos jogadores são? Qual elemento escolhem?"},
		{ID: 2, Name: "Cena 0A - Portal da Água", Phase: 1, Order: 1, ImageURL: "media/agua.png",
			FileContent: "A correnteza chama. O que fazem?"},
		{ID: 3, Name: "Cena 0B - Clareira", Phase: 1, Order: 2},
		{ID: 4, Name: "Cena 01 - Temperança", Phase: 2, Order: 3, VideoURL: "media/temperanca.mp4"},
	}
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *services.MockBackend) {
	t.Helper()
	backend := services.NewMockBackend()
	backend.Scenarios = forgeScenarios()
	backend.LLM = &services.LLMConfig{Provider: "ollama", ModelName: "llama3.2"}
	return New(backend, testLogger()), backend
}

func TestInitializeCreatesSessionAtIntro(t *testing.T) {
	o, backend := newTestOrchestrator(t)

	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	s := o.Session()
	if s == nil {
		t.Fatal("no session bound")
	}
	if s.ScenarioID() != 1 {
		t.Errorf("ScenarioID = %d, want intro (1)", s.ScenarioID())
	}
	if s.LLMProvider != "ollama" || s.LLMModel != "llama3.2" {
		t.Errorf("LLM binding = %s/%s", s.LLMProvider, s.LLMModel)
	}
	if _, ok := backend.Sessions[s.ID]; !ok {
		t.Error("session not stored on backend")
	}

	// Fresh session: scene card for the intro media, then the intro
	// narration (first segment of the intro script).
	entries := o.Log().Entries()
	if len(entries) != 2 {
		t.Fatalf("log has %d entries, want 2", len(entries))
	}
	if entries[0].Kind != session.EntryScene || entries[0].SceneName != "Introdução" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Kind != session.EntryIntro || entries[1].Response != "Sejam bem-vindos à Forja. Quantos jogadores são? " {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

// The seeded intro entry already narrates the script's first segment,
// so the first prompt context must start at the second.
func TestIntroPromptContextSkipsSeededSegment(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ctxStr, err := o.PromptContext("somos 2 jogadores")
	if err != nil {
		t.Fatalf("PromptContext: %v", err)
	}
	if strings.Contains(ctxStr, "Comece em: Sejam bem-vindos à Forja") {
		t.Errorf("prompt context repeats the seeded intro narration:\n%s", ctxStr)
	}
	if !strings.Contains(ctxStr, "Comece em: Qual elemento escolhem?") {
		t.Errorf("prompt context missing the second segment:\n%s", ctxStr)
	}
}

// A scene change consumes the new scenario's first segment (it is the
// confirmed response), so the next prompt context must not repeat it.
func TestSceneChangeAdvancesSegmentWindow(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	res := o.SendText(context.Background(), "escolhemos o portal da água")
	if res.Err != nil {
		t.Fatalf("SendText: %v", res.Err)
	}
	if !res.SceneChanged {
		t.Fatal("expected scene change")
	}

	ctxStr, err := o.PromptContext("seguimos")
	if err != nil {
		t.Fatalf("PromptContext: %v", err)
	}
	if strings.Contains(ctxStr, "A correnteza chama") {
		t.Errorf("prompt context repeats the portal's narrated segment:\n%s", ctxStr)
	}
}

func TestInitializeResumesActiveSession(t *testing.T) {
	o, backend := newTestOrchestrator(t)

	roomID, scenarioID := 7, 2
	backend.Sessions[42] = &session.Session{
		ID: 42, RoomID: &roomID, CurrentScenarioID: &scenarioID,
		Status: session.StatusActive,
	}
	backend.History[42] = []session.Interaction{
		{ID: 2, SessionID: 42, PlayerInput: "água", AIResponse: "O portal se abre."},
		{ID: 1, SessionID: 42, PlayerInput: "somos 2 jogadores", AIResponse: "Ótimo."},
	}

	if err := o.Initialize(context.Background(), 1, 7, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if o.Session().ID != 42 {
		t.Fatalf("bound session %d, want 42", o.Session().ID)
	}

	// History arrives newest-first and must render oldest-first, with
	// no synthetic intro on a resumed session.
	entries := o.Log().Entries()
	if len(entries) != 2 {
		t.Fatalf("log has %d entries, want 2", len(entries))
	}
	if entries[0].Interaction.ID != 1 || entries[1].Interaction.ID != 2 {
		t.Errorf("history order: %d then %d", entries[0].Interaction.ID, entries[1].Interaction.ID)
	}
	if o.Log().HasIntro() {
		t.Error("resumed session should not seed an intro")
	}
}

func TestInitializeSkipsOtherRooms(t *testing.T) {
	o, backend := newTestOrchestrator(t)

	otherRoom := 3
	backend.Sessions[5] = &session.Session{ID: 5, RoomID: &otherRoom, Status: session.StatusActive}

	if err := o.Initialize(context.Background(), 1, 7, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if o.Session().ID == 5 {
		t.Error("bound a session from another room")
	}
}

// Full first-turn flow: the element choice transitions the session to
// the water portal, splicing exactly one scene card before the
// confirmed interaction.
func TestSendTextElementTransition(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	res := o.SendText(context.Background(), "escolhemos o portal da água")
	if res.Err != nil {
		t.Fatalf("SendText: %v", res.Err)
	}
	if res.Stale {
		t.Fatal("result marked stale")
	}
	if !res.SceneChanged || res.Scenario == nil || res.Scenario.ID != 2 {
		t.Errorf("SceneChanged=%v Scenario=%+v, want water portal (2)", res.SceneChanged, res.Scenario)
	}
	if o.Session().ScenarioID() != 2 {
		t.Errorf("session scenario = %d, want 2", o.Session().ScenarioID())
	}

	// scene(intro), intro, scene(portal), confirmed.
	entries := o.Log().Entries()
	if len(entries) != 4 {
		t.Fatalf("log has %d entries, want 4", len(entries))
	}
	if entries[2].Kind != session.EntryScene || entries[2].SceneName != "Cena 0A - Portal da Água" {
		t.Errorf("entry 2 = %+v", entries[2])
	}
	if entries[3].Kind != session.EntryConfirmed || entries[3].Interaction.PlayerInput != "escolhemos o portal da água" {
		t.Errorf("entry 3 = %+v", entries[3])
	}
	if o.Log().HasPending() {
		t.Error("pending entry survived confirmation")
	}
}

func TestSendTextSelfLoopNoSceneCard(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	before := o.Log().Len()
	res := o.SendText(context.Background(), "olhamos em volta")
	if res.Err != nil {
		t.Fatalf("SendText: %v", res.Err)
	}
	if res.SceneChanged {
		t.Error("self-loop inserted a scene card")
	}
	if got := o.Log().Len(); got != before+1 {
		t.Errorf("log grew by %d entries, want 1", got-before)
	}
}

func TestSendTextFailureMarksEntry(t *testing.T) {
	o, backend := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	backend.FailSubmit = errors.New("backend indisponível")

	res := o.SendText(context.Background(), "finalizei a cena")
	if res.Err == nil {
		t.Fatal("expected submit error")
	}

	last := o.Log().Last()
	if last == nil || last.Kind != session.EntryFailed {
		t.Fatalf("last entry = %+v, want failed", last)
	}
	if last.PlayerInput != "finalizei a cena" {
		t.Errorf("failed entry input = %q", last.PlayerInput)
	}
	if last.Response != "backend indisponível" {
		t.Errorf("failed entry message = %q", last.Response)
	}
	if o.Log().HasPending() {
		t.Error("failed submit left a pending entry")
	}

	// Scenario must not move on a failed turn.
	if o.Session().ScenarioID() != 1 {
		t.Errorf("scenario moved to %d on failure", o.Session().ScenarioID())
	}
}

func TestSendTextRejectsConcurrentSubmit(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	o.Log().AppendPending("primeira", session.InputTypeText)
	res := o.SendText(context.Background(), "segunda")
	if res.Err == nil {
		t.Fatal("expected in-flight rejection")
	}
}

// A response that lands after BackToSelection must not touch the new
// log. The sequence snapshot taken before the submit detects this.
func TestStaleResponseDropped(t *testing.T) {
	o, backend := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	sessID := o.Session().ID

	seq := o.LoadSeq()
	pendingID := o.Log().AppendPending("água", session.InputTypeText)
	in, err := backend.SubmitText(context.Background(), services.InteractRequest{
		SessionID: sessID, PlayerInput: "água", PlayerInputType: session.InputTypeText,
	})
	if err != nil {
		t.Fatalf("SubmitText: %v", err)
	}

	// Session switch while the request was in flight.
	o.BackToSelection()

	res := o.resolve(context.Background(), seq, pendingID, "água", in, nil)
	if !res.Stale {
		t.Fatal("response applied despite session switch")
	}
	if o.Log().Len() != 0 {
		t.Errorf("stale response wrote %d entries", o.Log().Len())
	}
}

func TestPauseAndResume(t *testing.T) {
	o, backend := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := o.Pause(context.Background()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if o.Session().Status != session.StatusPaused {
		t.Errorf("status = %s after pause", o.Session().Status)
	}

	if err := o.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !o.Session().IsActive() {
		t.Errorf("status = %s after resume", o.Session().Status)
	}

	// Backend-first: a failed pause leaves the session active.
	backend.FailPause = errors.New("timeout")
	if err := o.Pause(context.Background()); err == nil {
		t.Fatal("expected pause error")
	}
	if !o.Session().IsActive() {
		t.Error("local status changed on failed pause")
	}
}

func TestProfileFlowsIntoPromptContext(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	res := o.SendText(context.Background(), "Somos 2 jogadores. Jogador 1: Ana, 10 anos. Jogador 2: Léo, 8 anos")
	if res.Err != nil {
		t.Fatalf("SendText: %v", res.Err)
	}

	ctxStr, err := o.PromptContext("seguimos em frente")
	if err != nil {
		t.Fatalf("PromptContext: %v", err)
	}
	for _, want := range []string{"Jogador 1: Ana, 10 anos", "Jogador 2: Léo, 8 anos", "Total de jogadores: 2"} {
		if !strings.Contains(ctxStr, want) {
			t.Errorf("prompt context missing %q", want)
		}
	}
}

// Re-initializing onto another session must behave like Bind: all
// in-memory state from the previous session is discarded and in-flight
// responses become stale.
func TestInitializeDiscardsPreviousSessionState(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	firstID := o.Session().ID

	res := o.SendText(context.Background(), "Jogador 1: Ana, 9 anos. Somos 2 jogadores")
	if res.Err != nil {
		t.Fatalf("SendText: %v", res.Err)
	}
	if err := o.Pause(context.Background()); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	seq := o.LoadSeq()

	// The paused session no longer matches, so a new one is created.
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if o.Session().ID == firstID {
		t.Fatalf("still bound to session %d", firstID)
	}
	if o.LoadSeq() != seq+1 {
		t.Errorf("LoadSeq = %d, want %d", o.LoadSeq(), seq+1)
	}

	ctxStr, err := o.PromptContext("olá")
	if err != nil {
		t.Fatalf("PromptContext: %v", err)
	}
	if strings.Contains(ctxStr, "Jogador 1: Ana, 9 anos") {
		t.Errorf("new session's prompt context carries the old profile:\n%s", ctxStr)
	}

	// Fresh session: seeded intro only, no history from the old one.
	entries := o.Log().Entries()
	if len(entries) != 2 || entries[0].Kind != session.EntryScene || entries[1].Kind != session.EntryIntro {
		t.Errorf("log after re-initialize = %+v", entries)
	}
}

// A turn whose submit fails must leave the profile untouched.
func TestFailedSendLeavesProfileUntouched(t *testing.T) {
	o, backend := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	backend.FailSubmit = errors.New("backend indisponível")

	res := o.SendText(context.Background(), "Jogador 1: Ana, 9 anos. Somos 2 jogadores")
	if res.Err == nil {
		t.Fatal("expected submit error")
	}

	ctxStr, err := o.PromptContext("olá")
	if err != nil {
		t.Fatalf("PromptContext: %v", err)
	}
	if strings.Contains(ctxStr, "Jogador 1: Ana, 9 anos") {
		t.Errorf("failed turn mutated the profile:\n%s", ctxStr)
	}
}

func TestBackToSelectionResetsState(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	if err := o.Initialize(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	o.SendText(context.Background(), "Somos 3 jogadores. Jogador 1: Bia, 9 anos")
	seq := o.LoadSeq()

	o.BackToSelection()

	if o.Session() != nil {
		t.Error("session still bound")
	}
	if o.Log().Len() != 0 {
		t.Error("log not cleared")
	}
	if o.LoadSeq() != seq+1 {
		t.Errorf("LoadSeq = %d, want %d", o.LoadSeq(), seq+1)
	}
}

