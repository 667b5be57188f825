package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appearanceHandler "github.com/prestonty/timelens-be/internal/handler/appearance"
	"github.com/prestonty/timelens-be/internal/handler/chat"
	"github.com/prestonty/timelens-be/internal/handler/persona"
	"github.com/prestonty/timelens-be/internal/handler/stream"
	middlewarePkg "github.com/prestonty/timelens-be/internal/middleware"
	personaModel "github.com/prestonty/timelens-be/internal/model/persona"
	"github.com/prestonty/timelens-be/internal/service/appearance"
	chatService "github.com/prestonty/timelens-be/internal/service/chat"
	"github.com/prestonty/timelens-be/internal/service/narrative"
)

// NewRouter wires HTTP routes to core services. narrativeSvc and appearanceSvc are nil
// when text generation is not configured; routes that generate then answer 503 while
// persona lookups and history keep reading the stores.
func NewRouter(allowedOrigins []string, personas personaModel.Store, ledger *chatService.Service, narrativeSvc *narrative.Service, appearanceSvc *appearance.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	personaHandler := persona.New(narrativeSvc, personas, ledger)
	chatHandler := chat.New(narrativeSvc)
	appearanceH := appearanceHandler.New(appearanceSvc)
	streamHandler := stream.New(narrativeSvc, middlewarePkg.CheckOrigin(allowedOrigins))

	r.Route("/api", func(api chi.Router) {
		api.Get("/submit", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("Starting backend"))
		})

		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		appearanceH.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
	})

	return r
}
