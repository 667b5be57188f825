package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prestonty/timelens-be/internal/model/persona"
	chatservice "github.com/prestonty/timelens-be/internal/service/chat"
	"github.com/prestonty/timelens-be/internal/service/narrative"
	"github.com/prestonty/timelens-be/pkg/utils"
)

// Handler serves persona creation and lookup.
type Handler struct {
	narrative *narrative.Service
	personas  persona.Store
	ledger    *chatservice.Service
}

// New creates a persona handler. Lookups read the stores directly; only
// /generate needs narrativeSvc and answers 503 when it is nil.
func New(narrativeSvc *narrative.Service, personas persona.Store, ledger *chatservice.Service) *Handler {
	return &Handler{narrative: narrativeSvc, personas: personas, ledger: ledger}
}

// RegisterRoutes registers persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/generate", h.handleGenerate)
	r.Get("/personas/{personaID}", h.handleGetPersona)
	r.Get("/personas/{personaID}/history", h.handleHistory)
}

// handleGenerate creates a persona for the event query parameter.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.narrative == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "text generation unavailable")
		return
	}

	created, err := h.narrative.GeneratePersona(r.Context(), r.URL.Query().Get("event"))
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, created)
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "personaID"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.personas.GetByID(r.Context(), id)
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

// handleHistory returns the canonical ledger; 404 when the persona does not exist.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "personaID"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.personas.GetByID(r.Context(), id); err != nil {
		utils.RespondFailure(w, err)
		return
	}
	entries, err := h.ledger.ListByPersona(r.Context(), id)
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, entries)
}
