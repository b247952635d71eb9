package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/forjaquest/forja-engine/internal/services"
	"github.com/forjaquest/forja-engine/internal/services/events"
	"github.com/forjaquest/forja-engine/internal/storage"
	"github.com/forjaquest/forja-engine/pkg/session"
)

type SessionsHandler struct {
	store       storage.Store
	broadcaster *events.Broadcaster // optional
	logger      *slog.Logger
}

func NewSessionsHandler(store storage.Store, broadcaster *events.Broadcaster, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ServeHTTP handles session lifecycle operations.
// Routes:
// GET /api/sessions/               - List sessions
// POST /api/sessions/              - Create session
// GET /api/sessions/{id}           - Read session by ID
// PATCH /api/sessions/{id}/pause   - Pause session
// PATCH /api/sessions/{id}/resume  - Resume session
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	parts := strings.Split(path, "/")
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleRead(w, r, id)
	case len(parts) == 2 && parts[1] == "pause" && r.Method == http.MethodPatch:
		h.handleStatusChange(w, r, id, session.StatusPaused)
	case len(parts) == 2 && parts[1] == "resume" && r.Method == http.MethodPatch:
		h.handleStatusChange(w, r, id, session.StatusActive)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SessionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.logger.Error("Failed to list sessions", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sessions)
}

func (h *SessionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	s := &session.Session{
		Status:            session.StatusActive,
		CurrentPhase:      1,
		CurrentScenarioID: req.ScenarioID,
		RoomID:            req.RoomID,
		LLMProvider:       req.LLMProvider,
		LLMModel:          req.LLMModel,
	}
	if req.GameID != nil {
		s.GameID = *req.GameID
	}

	if err := h.store.CreateSession(r.Context(), s); err != nil {
		h.logger.Error("Failed to create session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.logger.Info("Session created", "session_id", s.ID, "scenario_id", s.ScenarioID())
	h.publish(r.Context(), events.Event{Type: events.EventTypeSessionCreated, SessionID: s.ID, ScenarioID: s.ScenarioID()})
	writeJSON(w, h.logger, http.StatusCreated, s)
}

func (h *SessionsHandler) handleRead(w http.ResponseWriter, r *http.Request, id int) {
	s, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *SessionsHandler) handleStatusChange(w http.ResponseWriter, r *http.Request, id int, target session.Status) {
	s, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}

	s.Status = target
	if err := h.store.SaveSession(r.Context(), s); err != nil {
		h.logger.Error("Failed to save session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	eventType := events.EventTypeSessionPaused
	if target == session.StatusActive {
		eventType = events.EventTypeSessionResumed
	}
	h.publish(r.Context(), events.Event{Type: eventType, SessionID: s.ID})
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *SessionsHandler) publish(ctx context.Context, event events.Event) {
	if h.broadcaster == nil {
		return
	}
	if err := h.broadcaster.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish session event", "type", event.Type, "error", err)
	}
}
