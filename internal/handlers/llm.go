package handlers

import (
	"log/slog"
	"net/http"

	"github.com/forjaquest/forja-engine/internal/services"
)

type LLMHandler struct {
	config services.LLMConfig
	logger *slog.Logger
}

func NewLLMHandler(config services.LLMConfig, logger *slog.Logger) *LLMHandler {
	return &LLMHandler{
		config: config,
		logger: logger,
	}
}

// ServeHTTP handles GET /api/llm/active, returning the narrator binding
// the local backend was started with.
func (h *LLMHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.config)
}
