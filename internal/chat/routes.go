package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers the chat routes with the Chi router. All routes
// require the session gate.
func RegisterRoutes(r chi.Router, handler *Handler, authMiddleware Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/chat", handler.Chat)
		r.Get("/messages", handler.Messages)
		r.Get("/history", handler.Messages)
	})
}
