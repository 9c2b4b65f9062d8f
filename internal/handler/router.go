package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/handler/chat"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/handler/stream"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/handler/ws"
	middlewarePkg "github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/middleware"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/orchestrator"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/utils"
)

// NewRouter wires HTTP routes to the loan journey orchestrator.
func NewRouter(orch *orchestrator.Orchestrator, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(orch, log)
	streamHandler := stream.New(orch, log)
	wsHandler := ws.New(orch, log)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Error("stream request failed", "session", sessionID, "err", err)
			}
		})
	})

	return r
}
