package server

import (
	"net/http"

	"github.com/cloo-solutions/converso/internal/api"
	"github.com/cloo-solutions/converso/internal/api/handlers"
	"github.com/cloo-solutions/converso/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator       middleware.AuthValidator
	DocumentHandler     *handlers.DocumentHandler
	ChatHandler         *handlers.ChatHandler
	ConversationHandler *handlers.ConversationHandler
	WebhookHandler      *handlers.WebhookHandler
	MaxBodyBytes        int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 5 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Platform webhooks authenticate by signature, not API key.
	r.Route("/webhooks/{platform}", func(r chi.Router) {
		r.Get("/", cfg.WebhookHandler.Verify)
		r.Post("/", cfg.WebhookHandler.Receive)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{documentID}", cfg.DocumentHandler.Get)
			r.Post("/{documentID}/reprocess", cfg.DocumentHandler.Reprocess)
			r.Delete("/{documentID}", cfg.DocumentHandler.Delete)
		})

		r.Post("/chat", cfg.ChatHandler.Ask)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", cfg.ConversationHandler.List)
			r.Get("/{conversationID}", cfg.ConversationHandler.Get)
			r.Get("/{conversationID}/messages", cfg.ConversationHandler.Messages)
		})
	})

	return r
}
