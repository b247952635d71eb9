package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forjaquest/forja-engine/internal/services"
	"github.com/forjaquest/forja-engine/internal/services/events"
	"github.com/forjaquest/forja-engine/internal/storage"
	"github.com/forjaquest/forja-engine/pkg/prompts"
	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/segment"
	"github.com/forjaquest/forja-engine/pkg/session"
	"github.com/forjaquest/forja-engine/pkg/textfilter"
)

// maxAudioUpload bounds multipart audio submissions.
const maxAudioUpload = 15 << 20

// endOfScript is narrated when a scenario's script has been fully
// revealed and the player has not yet advanced.
const endOfScript = "A cena segue. Quando terminarem, digam que finalizaram para avançar."

type GameHandler struct {
	store       storage.Store
	llm         services.LLMService // optional, scripted narrator when nil
	broadcaster *events.Broadcaster // optional
	logger      *slog.Logger

	// Narration is for a young table, so model output goes through the
	// family filter before reaching players.
	filter *textfilter.NarrationFilter

	// Per-session narration progress. Guarded because interactions from
	// different sessions may land concurrently.
	mu   sync.Mutex
	segs map[int]*segment.Cache
}

func NewGameHandler(store storage.Store, llm services.LLMService, broadcaster *events.Broadcaster, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		store:       store,
		llm:         llm,
		broadcaster: broadcaster,
		logger:      logger,
		filter:      textfilter.NewNarrationFilter(),
		segs:        make(map[int]*segment.Cache),
	}
}

// ServeHTTP handles game interaction operations.
// Routes:
// POST /api/game/interact        - Submit a text interaction
// POST /api/game/interact/audio  - Submit an audio interaction
// GET /api/game/{id}/history     - Read a session's interactions
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/game"), "/")

	switch {
	case path == "interact" && r.Method == http.MethodPost:
		h.handleInteract(w, r)
	case path == "interact/audio" && r.Method == http.MethodPost:
		h.handleInteractAudio(w, r)
	case strings.HasSuffix(path, "/history") && r.Method == http.MethodGet:
		idStr := strings.TrimSuffix(path, "/history")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID")
			return
		}
		h.handleHistory(w, r, id)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *GameHandler) handleInteract(w http.ResponseWriter, r *http.Request) {
	var req services.InteractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.PlayerInput) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "player_input is required")
		return
	}
	if req.PlayerInputType == "" {
		req.PlayerInputType = session.InputTypeText
	}

	in, status, detail := h.interact(r, req)
	if detail != "" {
		writeError(w, h.logger, status, detail)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, in)
}

// handleInteractAudio accepts the multipart upload. The local backend
// has no transcription model, so the audio advances the log with a
// placeholder input and never moves the scenario.
func (h *GameHandler) handleInteractAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	sessionID, err := strconv.Atoi(r.FormValue("session_id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session_id")
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "audio_file is required")
		return
	}
	_ = file.Close()
	h.logger.Debug("Audio interaction received", "session_id", sessionID, "filename", header.Filename, "size", header.Size)

	in, status, detail := h.interact(r, services.InteractRequest{
		SessionID:       sessionID,
		PlayerInput:     "(áudio recebido)",
		PlayerInputType: session.InputTypeAudio,
	})
	if detail != "" {
		writeError(w, h.logger, status, detail)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, in)
}

// interact runs one authoritative turn: resolve the transition, update
// the session, narrate, persist the interaction. A non-empty detail
// reports the failure to the client.
func (h *GameHandler) interact(r *http.Request, req services.InteractRequest) (*session.Interaction, int, string) {
	ctx := r.Context()
	started := time.Now()

	s, err := h.store.GetSession(ctx, req.SessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", req.SessionID, "error", err)
		return nil, http.StatusInternalServerError, "Failed to load session"
	}
	if s == nil {
		return nil, http.StatusNotFound, "Session not found"
	}
	if !s.IsActive() {
		return nil, http.StatusConflict, "Session is not active"
	}

	scenarios, err := h.store.LoadScenarios(ctx)
	if err != nil {
		h.logger.Error("Failed to load scenarios", "error", err)
		return nil, http.StatusInternalServerError, "Failed to load scenarios"
	}
	graph := scenario.Compile(scenarios)

	current := graph.ByID(s.ScenarioID())
	if current == nil {
		current = graph.Intro()
	}
	next := graph.Next(current, req.PlayerInput)

	if next != nil && (current == nil || next.ID != current.ID) {
		id := next.ID
		s.CurrentScenarioID = &id
		s.CurrentPhase = next.Phase
		if err := h.store.SaveSession(ctx, s); err != nil {
			h.logger.Error("Failed to save session", "session_id", s.ID, "error", err)
			return nil, http.StatusInternalServerError, "Failed to save session"
		}
		h.logger.Info("Scenario changed", "session_id", s.ID, "scenario_id", next.ID, "scenario", next.Name)
		if h.broadcaster != nil {
			if err := h.broadcaster.PublishScenarioChanged(ctx, s.ID, next.ID, next.Name); err != nil {
				h.logger.Warn("Failed to publish scenario change", "session_id", s.ID, "error", err)
			}
		}
	} else if err := h.store.SaveSession(ctx, s); err != nil {
		h.logger.Error("Failed to save session", "session_id", s.ID, "error", err)
		return nil, http.StatusInternalServerError, "Failed to save session"
	}

	response := h.narrate(r, s, next, graph, req.PlayerInput)

	in := &session.Interaction{
		SessionID:           s.ID,
		PlayerInput:         req.PlayerInput,
		PlayerInputType:     req.PlayerInputType,
		AIResponse:          response,
		LLMProvider:         s.LLMProvider,
		LLMModel:            s.LLMModel,
		ResponseTimeSeconds: time.Since(started).Seconds(),
	}
	if err := h.store.AppendInteraction(ctx, in); err != nil {
		h.logger.Error("Failed to store interaction", "session_id", s.ID, "error", err)
		return nil, http.StatusInternalServerError, "Failed to store interaction"
	}
	return in, http.StatusOK, ""
}

// narrate produces the turn's response. With a model configured the
// prompt context bounds the narration to the next script segment; the
// scripted narrator reveals that segment verbatim. Either way progress
// advances one segment per turn.
func (h *GameHandler) narrate(r *http.Request, s *session.Session, sc *scenario.Scenario, graph *scenario.Graph, input string) string {
	if sc == nil {
		return endOfScript
	}

	h.mu.Lock()
	cache := h.segs[s.ID]
	if cache == nil {
		cache = segment.NewCache()
		h.segs[s.ID] = cache
		// Sessions created at the intro already showed the intro's first
		// segment to the player at session creation.
		if intro := graph.Intro(); intro != nil && s.CurrentScenarioID != nil && sc.ID == intro.ID {
			cache.Ensure(intro.ID, intro.FileContent)
			cache.SetProgress(intro.ID, 1)
		}
	}
	cache.Ensure(sc.ID, sc.FileContent)
	from, to := cache.Window(sc.ID)
	cache.Advance(sc.ID)
	h.mu.Unlock()

	if from == "" {
		return endOfScript
	}

	if h.llm != nil {
		systemPrompt, err := prompts.BuildContext(sc, from, to, nil, input)
		if err == nil {
			response, err := h.llm.Narrate(r.Context(), systemPrompt, input)
			if err == nil && strings.TrimSpace(response) != "" {
				if h.filter.ContainsUnsafe(response) {
					h.logger.Debug("Narration filtered", "session_id", s.ID)
					response = h.filter.FilterText(response)
				}
				return response
			}
			h.logger.Warn("Narration model failed, using scripted narrator", "error", err)
		}
	}

	return strings.TrimSpace(from)
}

func (h *GameHandler) handleHistory(w http.ResponseWriter, r *http.Request, sessionID int) {
	s, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}

	history, err := h.store.ListInteractions(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load history", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load history")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, history)
}
