package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers the authentication routes with the Chi router.
// registerLimit guards /register against automated signups; pass nil to
// skip it.
func RegisterRoutes(r chi.Router, handler *Handler, registerLimit Middleware) {
	if registerLimit != nil {
		r.With(registerLimit).Post("/register", handler.Register)
	} else {
		r.Post("/register", handler.Register)
	}

	r.Post("/token", handler.Token)
	r.Post("/login", handler.Token)
}
