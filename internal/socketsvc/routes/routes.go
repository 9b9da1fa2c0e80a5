package routes

import (
	"github.com/avvvet/tourney-services/internal/auth"
	"github.com/avvvet/tourney-services/internal/socketsvc/handlers"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func SetRoutes(r chi.Router, h *handlers.Handler, tokenAuth *jwtauth.JWTAuth) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(tokenAuth, auth.TokenFromQuery, jwtauth.TokenFromHeader))
			r.Use(jwtauth.Authenticator)
			r.Use(auth.Require(auth.RoleAdmin, auth.RoleUser))

			r.Get("/ws", h.HandleWebSocket)
		})
	})
}
