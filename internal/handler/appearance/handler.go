package appearance

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prestonty/timelens-be/internal/service/appearance"
	"github.com/prestonty/timelens-be/pkg/utils"
)

// Handler serves appearance selection.
type Handler struct {
	selector *appearance.Service
}

// New creates an appearance handler. A nil selector answers 503.
func New(selector *appearance.Service) *Handler {
	return &Handler{selector: selector}
}

// RegisterRoutes registers appearance routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate_character", h.handleGenerateCharacter)
}

func (h *Handler) handleGenerateCharacter(w http.ResponseWriter, r *http.Request) {
	if h.selector == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "text generation unavailable")
		return
	}

	var payload struct {
		CharacterName string `json:"character_name"`
		EventName     string `json:"event_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids, err := h.selector.Select(r.Context(), payload.CharacterName, payload.EventName)
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ids)
}
