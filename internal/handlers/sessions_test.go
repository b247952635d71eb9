package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forjaquest/forja-engine/internal/services"
	"github.com/forjaquest/forja-engine/pkg/session"
)

func TestSessionCreateAndRead(t *testing.T) {
	store := newTestStore(t)
	h := NewSessionsHandler(store, nil, testLogger())

	gameID, scenarioID := 1, 1
	body, _ := json.Marshal(services.CreateSessionRequest{
		GameID:      &gameID,
		ScenarioID:  &scenarioID,
		LLMProvider: "ollama",
		LLMModel:    "llama3.2",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/sessions/", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusCreated, w.Code, "create: %s", w.Body.String())

	var created session.Session
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive())
	assert.Equal(t, 1, created.ScenarioID())

	r = httptest.NewRequest(http.MethodGet, "/api/sessions/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	var read session.Session
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&read))
	assert.Equal(t, created.ID, read.ID)
	assert.Equal(t, "ollama", read.LLMProvider)
}

func TestSessionList(t *testing.T) {
	store := newTestStore(t)
	createTestSession(t, store, 1, session.StatusActive)
	createTestSession(t, store, 2, session.StatusPaused)
	h := NewSessionsHandler(store, nil, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/sessions/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	var sessions []session.Session
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&sessions))
	assert.Len(t, sessions, 2)
}

func TestSessionPauseResume(t *testing.T) {
	store := newTestStore(t)
	s := createTestSession(t, store, 1, session.StatusActive)
	h := NewSessionsHandler(store, nil, testLogger())

	r := httptest.NewRequest(http.MethodPatch, "/api/sessions/1/pause", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	var paused session.Session
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&paused))
	assert.Equal(t, s.ID, paused.ID)
	assert.Equal(t, session.StatusPaused, paused.Status)

	r = httptest.NewRequest(http.MethodPatch, "/api/sessions/1/resume", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	var resumed session.Session
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&resumed))
	assert.True(t, resumed.IsActive())
}

func TestSessionErrors(t *testing.T) {
	store := newTestStore(t)
	h := NewSessionsHandler(store, nil, testLogger())

	cases := []struct {
		name   string
		method string
		path   string
		code   int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/99", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/sessions/abc", http.StatusBadRequest},
		{"pause unknown", http.MethodPatch, "/api/sessions/99/pause", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/sessions/1", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestScenariosEndpoint(t *testing.T) {
	store := newTestStore(t)
	h := NewScenariosHandler(store, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/game/config/scenarios?game_id=1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	var scenarios []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&scenarios))
	assert.Len(t, scenarios, 4)
	assert.Equal(t, "Introdução", scenarios[0].Name)
}

func TestLLMActiveEndpoint(t *testing.T) {
	h := NewLLMHandler(services.LLMConfig{Provider: "ollama", ModelName: "llama3.2"}, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/llm/active", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	var cfg services.LLMConfig
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&cfg))
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "llama3.2", cfg.ModelName)
}
