// Package orchestrator coordinates a single live game session: it owns
// the interaction log, the compiled scenario graph, the segment cache
// and the player profile, and drives every backend call the console
// makes. All methods are called from the UI event loop, one at a time.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forjaquest/forja-engine/internal/services"
	"github.com/forjaquest/forja-engine/pkg/profile"
	"github.com/forjaquest/forja-engine/pkg/prompts"
	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/segment"
	"github.com/forjaquest/forja-engine/pkg/session"
)

// Result is the outcome of a submitted interaction, as applied to the
// log. Stale results (from a session that was switched away from) are
// dropped and reported as such.
type Result struct {
	Stale       bool
	Err         error
	Interaction *session.Interaction
	// SceneChanged is set when the turn moved the session to a new
	// scenario and a scene card was spliced into the log.
	SceneChanged bool
	Scenario     *scenario.Scenario
}

// Orchestrator drives one session against the backend. It keeps the
// backend's current_scenario_id authoritative and only falls back to
// the local graph prediction when the session re-fetch fails.
type Orchestrator struct {
	backend services.Backend
	logger  *slog.Logger

	sess  *session.Session
	graph *scenario.Graph
	ilog  *session.Log
	segs  *segment.Cache
	prof  profile.Profile

	// loadSeq increments on every session switch. Responses carrying an
	// older sequence are stale and must not touch the log.
	loadSeq int
}

// New creates an orchestrator bound to a backend.
func New(backend services.Backend, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		logger:  logger,
		ilog:    session.NewLog(),
		segs:    segment.NewCache(),
	}
}

// Session returns the active session, or nil before Initialize.
func (o *Orchestrator) Session() *session.Session {
	return o.sess
}

// Log returns the interaction log.
func (o *Orchestrator) Log() *session.Log {
	return o.ilog
}

// Graph returns the compiled scenario graph, or nil before Initialize.
func (o *Orchestrator) Graph() *scenario.Graph {
	return o.graph
}

// CurrentScenario resolves the session's current scenario through the
// graph, falling back to the intro when the session has none yet.
func (o *Orchestrator) CurrentScenario() *scenario.Scenario {
	if o.graph == nil {
		return nil
	}
	if o.sess != nil {
		if sc := o.graph.ByID(o.sess.ScenarioID()); sc != nil {
			return sc
		}
	}
	return o.graph.Intro()
}

// LoadSeq returns the current session sequence number. Callers snapshot
// it before a submit and pass it back with the response.
func (o *Orchestrator) LoadSeq() int {
	return o.loadSeq
}

// Initialize loads scenarios, compiles the graph and binds a session:
// the explicit session if one is given, otherwise the first active
// session matching the room scope, otherwise a freshly created session
// starting at the intro scenario. History is loaded for resumed
// sessions; new sessions are seeded with the intro narration.
func (o *Orchestrator) Initialize(ctx context.Context, gameID, roomID, sessionID int) error {
	o.reset()

	scenarios, err := o.backend.ListScenarios(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to load scenarios: %w", err)
	}
	o.graph = scenario.Compile(scenarios)

	switch {
	case sessionID > 0:
		o.sess, err = o.backend.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %d: %w", sessionID, err)
		}
	default:
		o.sess, err = o.findActiveSession(ctx, roomID)
		if err != nil {
			return err
		}
	}

	if o.sess == nil {
		o.sess, err = o.createSession(ctx, gameID, roomID)
		if err != nil {
			return err
		}
	}

	return o.loadLog(ctx)
}

// Bind switches the orchestrator to an already-fetched session, for
// example one picked from the selection screen. All per-session state
// is discarded first.
func (o *Orchestrator) Bind(ctx context.Context, s *session.Session) error {
	o.reset()
	o.sess = s
	return o.loadLog(ctx)
}

// findActiveSession returns the first active session, scoped to roomID
// when non-zero, or nil when none exists.
func (o *Orchestrator) findActiveSession(ctx context.Context, roomID int) (*session.Session, error) {
	sessions, err := o.backend.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for i := range sessions {
		s := &sessions[i]
		if !s.IsActive() {
			continue
		}
		if roomID > 0 && (s.RoomID == nil || *s.RoomID != roomID) {
			continue
		}
		return s, nil
	}
	return nil, nil
}

func (o *Orchestrator) createSession(ctx context.Context, gameID, roomID int) (*session.Session, error) {
	req := services.CreateSessionRequest{}
	if gameID > 0 {
		req.GameID = &gameID
	}
	if roomID > 0 {
		req.RoomID = &roomID
	}
	if intro := o.graph.Intro(); intro != nil {
		id := intro.ID
		req.ScenarioID = &id
	}
	if llm, err := o.backend.ActiveLLMConfig(ctx, gameID); err == nil && llm != nil {
		req.LLMProvider = llm.Provider
		req.LLMModel = llm.ModelName
	}

	s, err := o.backend.CreateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	o.logger.Info("session created", "session_id", s.ID, "scenario_id", s.ScenarioID())
	return s, nil
}

// loadLog fills the interaction log for the bound session: stored
// history when there is any, otherwise the seeded intro.
func (o *Orchestrator) loadLog(ctx context.Context) error {
	history, err := o.backend.GetHistory(ctx, o.sess.ID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	o.ilog.LoadHistory(history)

	if o.ilog.Len() == 0 {
		intro := o.graph.Intro()
		o.ilog.SeedIntro(intro, o.introText(intro), o.backend.BaseURL())
		if intro != nil {
			// The seeded entry already narrates segment 0.
			o.segs.SetProgress(intro.ID, 1)
		}
	}
	return nil
}

// introText is the narration shown before the first interaction: the
// first segment of the intro scenario's script, or a fixed greeting
// when the scenario carries no script.
func (o *Orchestrator) introText(intro *scenario.Scenario) string {
	if intro == nil {
		return ""
	}
	segs := o.segs.Ensure(intro.ID, intro.FileContent)
	if len(segs) > 0 {
		return segs[0]
	}
	return "Bem-vindos à Forja dos Elementos. Digam quantos jogadores são e quem são vocês."
}

// SendText submits a player turn. The sequence snapshotted at call time
// guards against stale responses: if the session was switched while the
// request was in flight, the result is dropped.
//
// The flow is optimistic: the input is appended as a pending entry
// before the request, then on confirmation the authoritative session is
// re-fetched and, when the scenario changed, a scene card is spliced in
// before the confirmed entry. On failure the pending entry becomes a
// terminal failed entry and the caller restores the input to the
// composer.
func (o *Orchestrator) SendText(ctx context.Context, input string) Result {
	if o.sess == nil {
		return Result{Err: fmt.Errorf("no session bound")}
	}
	if o.ilog.HasPending() {
		return Result{Err: fmt.Errorf("an interaction is already in flight")}
	}

	seq := o.loadSeq
	pendingID := o.ilog.AppendPending(input, session.InputTypeText)

	in, err := o.backend.SubmitText(ctx, services.InteractRequest{
		SessionID:       o.sess.ID,
		PlayerInput:     input,
		PlayerInputType: session.InputTypeText,
	})
	return o.resolve(ctx, seq, pendingID, input, in, err)
}

// SendAudio submits a recorded player turn through the multipart
// endpoint. The pending entry carries a placeholder until the backend
// returns the transcription inside the confirmed record.
func (o *Orchestrator) SendAudio(ctx context.Context, audio []byte, filename string, includeAudio bool) Result {
	if o.sess == nil {
		return Result{Err: fmt.Errorf("no session bound")}
	}
	if o.ilog.HasPending() {
		return Result{Err: fmt.Errorf("an interaction is already in flight")}
	}

	seq := o.loadSeq
	pendingID := o.ilog.AppendPending("(áudio enviado)", session.InputTypeAudio)

	in, err := o.backend.SubmitAudio(ctx, o.sess.ID, audio, filename, includeAudio)
	return o.resolve(ctx, seq, pendingID, "", in, err)
}

// resolve applies a submit outcome to the log, honoring the stale
// guard. input is the raw player text for local graph fallback; empty
// for audio turns.
func (o *Orchestrator) resolve(ctx context.Context, seq int, pendingID, input string, in *session.Interaction, submitErr error) Result {
	if seq != o.loadSeq {
		o.logger.Debug("dropping stale interaction response", "seq", seq, "current", o.loadSeq)
		return Result{Stale: true}
	}

	if submitErr != nil {
		o.ilog.MarkError(pendingID, submitErr.Error())
		return Result{Err: submitErr}
	}

	// Only a confirmed turn may mutate the session profile.
	o.prof.Merge(profile.Extract(input))

	prevID := o.sess.ScenarioID()
	o.refreshSession(ctx, input, in)

	var changed bool
	var current *scenario.Scenario
	if o.sess.ScenarioID() != prevID {
		current = o.graph.ByID(o.sess.ScenarioID())
		if current != nil {
			changed = o.ilog.InsertSceneBefore(pendingID, current, o.backend.BaseURL())
			// The confirmed response narrates the new scenario's first
			// unrevealed segment.
			o.segs.Ensure(current.ID, current.FileContent)
			o.segs.Advance(current.ID)
		}
	} else {
		current = o.CurrentScenario()
		if current != nil {
			o.segs.Ensure(current.ID, current.FileContent)
			o.segs.Advance(current.ID)
		}
	}

	o.ilog.ReplacePending(pendingID, *in)
	return Result{Interaction: in, SceneChanged: changed, Scenario: current}
}

// refreshSession re-fetches the authoritative session after a confirmed
// interaction. When the fetch fails, the local graph prediction stands
// in until the next successful fetch.
func (o *Orchestrator) refreshSession(ctx context.Context, input string, in *session.Interaction) {
	fresh, err := o.backend.GetSession(ctx, o.sess.ID)
	if err == nil {
		o.sess = fresh
		return
	}
	o.logger.Warn("session refresh failed, predicting locally", "error", err)

	if input == "" {
		return
	}
	current := o.CurrentScenario()
	if next := o.graph.Next(current, input); next != nil {
		id := next.ID
		o.sess.CurrentScenarioID = &id
		o.sess.CurrentPhase = next.Phase
	}
}

// Pause pauses the session on the backend first, then mirrors the
// returned state. The log is kept so a resume picks up seamlessly.
func (o *Orchestrator) Pause(ctx context.Context) error {
	if o.sess == nil {
		return fmt.Errorf("no session bound")
	}
	s, err := o.backend.PauseSession(ctx, o.sess.ID)
	if err != nil {
		return fmt.Errorf("failed to pause session: %w", err)
	}
	o.sess = s
	return nil
}

// Resume reactivates the bound session.
func (o *Orchestrator) Resume(ctx context.Context) error {
	if o.sess == nil {
		return fmt.Errorf("no session bound")
	}
	s, err := o.backend.ResumeSession(ctx, o.sess.ID)
	if err != nil {
		return fmt.Errorf("failed to resume session: %w", err)
	}
	o.sess = s
	return nil
}

// BackToSelection drops every piece of per-session state and bumps the
// sequence so in-flight responses become stale. The session itself is
// left as-is on the backend.
func (o *Orchestrator) BackToSelection() {
	o.reset()
}

func (o *Orchestrator) reset() {
	o.sess = nil
	o.ilog = session.NewLog()
	o.segs = segment.NewCache()
	o.prof.Reset()
	o.loadSeq++
}

// PromptContext assembles the narration context for the current state,
// for the meta panel and for local narrators.
func (o *Orchestrator) PromptContext(playerInput string) (string, error) {
	current := o.CurrentScenario()
	var from, to string
	if current != nil {
		o.segs.Ensure(current.ID, current.FileContent)
		from, to = o.segs.Window(current.ID)
	}
	return prompts.BuildContext(current, from, to, &o.prof, playerInput)
}
