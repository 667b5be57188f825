package chat

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/prestonty/timelens-be/internal/service/narrative"
	"github.com/prestonty/timelens-be/pkg/utils"
)

// Handler serves story continuation and in-character Q&A.
type Handler struct {
	narrative *narrative.Service
}

// New creates a chat handler. A nil service answers 503.
func New(narrativeSvc *narrative.Service) *Handler {
	return &Handler{narrative: narrativeSvc}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat", h.handleChat)
	r.Post("/chat", h.handleChat)
	r.Get("/chatWithUser", h.handleChatWithUser)
	r.Post("/chatWithUser", h.handleChatWithUser)
}

// handleChat narrates the next subevent for persona_id.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if h.narrative == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "text generation unavailable")
		return
	}
	personaID, err := utils.ParseID(r.FormValue("persona_id"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "persona_id must be a positive integer")
		return
	}

	subevent, err := h.narrative.ContinueStory(r.Context(), personaID)
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, subevent)
}

// handleChatWithUser streams an in-character answer. Nothing is written to the ledger.
func (h *Handler) handleChatWithUser(w http.ResponseWriter, r *http.Request) {
	if h.narrative == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "text generation unavailable")
		return
	}
	personaID, err := utils.ParseID(r.FormValue("persona_id"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "persona_id must be a positive integer")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sr, err := h.narrative.AnswerQuestion(r.Context(), personaID, r.FormValue("input"))
	if err != nil {
		utils.RespondFailure(w, err)
		return
	}
	defer sr.Close()

	if utils.WantsSSE(r) {
		h.streamEvents(w, flusher, personaID, sr)
		return
	}
	h.streamText(w, flusher, personaID, sr)
}

func (h *Handler) streamText(w http.ResponseWriter, flusher http.Flusher, personaID int64, sr *schema.StreamReader[*schema.Message]) {
	utils.SetupTextStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Printf("[chat] answer stream for persona %d failed: %v", personaID, err)
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if err := utils.WriteTextChunk(w, flusher, chunk.Content); err != nil {
			log.Printf("[chat] client went away for persona %d: %v", personaID, err)
			return
		}
	}
}

func (h *Handler) streamEvents(w http.ResponseWriter, flusher http.Flusher, personaID int64, sr *schema.StreamReader[*schema.Message]) {
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	utils.SendSSEEvent(w, flusher, "start", map[string]any{"personaId": personaID})
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("[chat] answer stream for persona %d failed: %v", personaID, err)
			utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": "answer generation failed"})
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		utils.SendSSEEvent(w, flusher, "delta", map[string]string{"content": chunk.Content})
	}
	utils.SendSSEEvent(w, flusher, "end", map[string]any{"personaId": personaID, "finished": true})
}
