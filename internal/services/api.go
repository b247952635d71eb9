package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/session"
)

// ErrorResponse is the backend's error envelope.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// APIClient implements Backend over HTTP.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Backend = (*APIClient)(nil)

// NewAPIClient creates a backend client for the given base URL.
func NewAPIClient(baseURL string, logger *slog.Logger) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// doJSON performs a request and decodes a JSON body into out. Non-2xx
// statuses are turned into errors carrying the backend's detail text.
func (c *APIClient) doJSON(ctx context.Context, method, url string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if err := json.Unmarshal(data, &errResp); err != nil || errResp.Detail == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("API error: %s", errResp.Detail)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *APIClient) ListSessions(ctx context.Context) ([]session.Session, error) {
	var sessions []session.Session
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/sessions/", nil, "", &sessions); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (c *APIClient) GetSession(ctx context.Context, id int) (*session.Session, error) {
	var s session.Session
	url := fmt.Sprintf("%s/api/sessions/%d", c.baseURL, id)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, "", &s); err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", id, err)
	}
	return &s, nil
}

func (c *APIClient) CreateSession(ctx context.Context, req CreateSessionRequest) (*session.Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var s session.Session
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/sessions/", bytes.NewReader(body), "application/json", &s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

func (c *APIClient) PauseSession(ctx context.Context, id int) (*session.Session, error) {
	var s session.Session
	url := fmt.Sprintf("%s/api/sessions/%d/pause", c.baseURL, id)
	if err := c.doJSON(ctx, http.MethodPatch, url, nil, "", &s); err != nil {
		return nil, fmt.Errorf("failed to pause session %d: %w", id, err)
	}
	return &s, nil
}

func (c *APIClient) ResumeSession(ctx context.Context, id int) (*session.Session, error) {
	var s session.Session
	url := fmt.Sprintf("%s/api/sessions/%d/resume", c.baseURL, id)
	if err := c.doJSON(ctx, http.MethodPatch, url, nil, "", &s); err != nil {
		return nil, fmt.Errorf("failed to resume session %d: %w", id, err)
	}
	return &s, nil
}

func (c *APIClient) ListScenarios(ctx context.Context, gameID int) ([]scenario.Scenario, error) {
	url := c.baseURL + "/api/game/config/scenarios"
	if gameID > 0 {
		url += "?game_id=" + strconv.Itoa(gameID)
	}
	var scenarios []scenario.Scenario
	if err := c.doJSON(ctx, http.MethodGet, url, nil, "", &scenarios); err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	// The backend pre-sorts by order; re-sort defensively.
	scenario.SortByOrder(scenarios)
	return scenarios, nil
}

func (c *APIClient) GetHistory(ctx context.Context, sessionID int) ([]session.Interaction, error) {
	url := fmt.Sprintf("%s/api/game/%d/history", c.baseURL, sessionID)
	var interactions []session.Interaction
	if err := c.doJSON(ctx, http.MethodGet, url, nil, "", &interactions); err != nil {
		return nil, fmt.Errorf("failed to get history for session %d: %w", sessionID, err)
	}
	return interactions, nil
}

func (c *APIClient) SubmitText(ctx context.Context, req InteractRequest) (*session.Interaction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var in session.Interaction
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/game/interact", bytes.NewReader(body), "application/json", &in); err != nil {
		return nil, fmt.Errorf("failed to submit interaction: %w", err)
	}
	return &in, nil
}

func (c *APIClient) SubmitAudio(ctx context.Context, sessionID int, audio []byte, filename string, includeAudio bool) (*session.Interaction, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio_file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("session_id", strconv.Itoa(sessionID)); err != nil {
		return nil, fmt.Errorf("failed to write session_id field: %w", err)
	}
	if err := writer.WriteField("include_audio_response", strconv.FormatBool(includeAudio)); err != nil {
		return nil, fmt.Errorf("failed to write include_audio_response field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	var in session.Interaction
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/game/interact/audio", &buf, writer.FormDataContentType(), &in); err != nil {
		return nil, fmt.Errorf("failed to submit audio interaction: %w", err)
	}
	return &in, nil
}

func (c *APIClient) ActiveLLMConfig(ctx context.Context, gameID int) (*LLMConfig, error) {
	url := c.baseURL + "/api/llm/active"
	if gameID > 0 {
		url += "?game_id=" + strconv.Itoa(gameID)
	}
	var cfg LLMConfig
	if err := c.doJSON(ctx, http.MethodGet, url, nil, "", &cfg); err != nil {
		return nil, fmt.Errorf("failed to get active LLM config: %w", err)
	}
	return &cfg, nil
}
