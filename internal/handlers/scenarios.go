package handlers

import (
	"log/slog"
	"net/http"

	"github.com/forjaquest/forja-engine/internal/storage"
)

type ScenariosHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewScenariosHandler(store storage.Store, logger *slog.Logger) *ScenariosHandler {
	return &ScenariosHandler{
		store:  store,
		logger: logger,
	}
}

// ServeHTTP handles GET /api/game/config/scenarios?game_id=N. The local
// backend serves a single game, so game_id only needs to be well formed.
func (h *ScenariosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	scenarios, err := h.store.LoadScenarios(r.Context())
	if err != nil {
		h.logger.Error("Failed to load scenarios", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scenarios")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, scenarios)
}
