package handlers

import (
	"github.com/avvvet/tourney-services/internal/auth"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Get("/games", h.ListGames)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.Require(auth.RoleAdmin))

				r.Route("/tournaments", func(r chi.Router) {
					r.Post("/", h.CreateTournament)
					r.Get("/", h.ListAllTournaments)
					r.Get("/current", h.ListCurrentTournaments)
					r.Get("/history", h.ListTournamentHistory)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", h.GetTournament)
						r.Patch("/", h.EditTournament)
						r.Delete("/", h.DeleteTournament)
						r.Put("/room", h.UpdateRoomInfo)
						r.Post("/end", h.EndTournament)
						r.Post("/kills", h.AwardKillMoney)
						r.Get("/participants", h.ListParticipants)
						r.Get("/winnings", h.ListWinnings)
					})
				})

				r.Get("/deposits", h.ListDeposits)
				r.Post("/deposits/{id}/approve", h.ReviewDeposit(true))
				r.Post("/deposits/{id}/reject", h.ReviewDeposit(false))
				r.Get("/withdrawals", h.ListWithdrawals)
				r.Post("/withdrawals/{id}/approve", h.ReviewWithdrawal(true))
				r.Post("/withdrawals/{id}/reject", h.ReviewWithdrawal(false))
				r.Get("/users", h.ListUsers)
				r.Post("/users/{id}/adjust", h.AdjustBalance)
			})

			r.Route("/user", func(r chi.Router) {
				r.Use(auth.Require(auth.RoleUser))

				r.Get("/tournaments", h.ListParticipated)
				r.Get("/tournaments/game/{game}", h.ListEligibleByGame)
				r.Get("/tournaments/{id}", h.GetTournamentForUser)
				r.Get("/tournaments/{id}/participated", h.IsParticipated)
				r.Post("/tournaments/{id}/participate", h.Participate)

				r.Get("/balance", h.GetBalance)
				r.Get("/history", h.GetHistory)
				r.Post("/transaction/deposit", h.RequestDeposit)
				r.Post("/transaction/withdraw", h.RequestWithdrawal)
				r.Get("/transaction/deposits", h.ListMyDeposits)
				r.Get("/transaction/withdrawals", h.ListMyWithdrawals)
			})
		})
	})
}
