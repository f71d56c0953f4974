// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/pipol-go/internal/middleware"
)

// Routes assembles the /api route tree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/me", h.Me)
			r.Put("/me", h.UpdateMe)
			r.Put("/password", h.ChangePassword)
			r.Put("/interests", h.UpdateInterests)
			r.Post("/avatar", h.UploadAvatar)
		})
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.With(middleware.RequireAuth).Post("/", h.CreateEvent)
		r.Route("/{idOrSlug}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Get("/attendees", h.ListAttendees)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Put("/", h.UpdateEvent)
				r.Delete("/", h.DeleteEvent)
				r.Post("/cancel", h.CancelEvent)
				r.Post("/attend", h.Attend)
				r.Delete("/attend", h.Leave)
				r.Post("/payment", h.ConfirmPayment)
				r.Post("/attendees/{attendeeID}/{decision}", h.DecideAttendee)
			})
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAuth, middleware.RequireAdmin)
		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", h.ListWebhooks)
			r.Post("/", h.CreateWebhook)
			r.Route("/{webhookID}", func(r chi.Router) {
				r.Get("/", h.GetWebhook)
				r.Put("/", h.UpdateWebhook)
				r.Delete("/", h.DeleteWebhook)
				r.Get("/deliveries", h.ListWebhookDeliveries)
			})
		})
		r.Get("/audit-log", h.ListAuditLog)
	})

	return r
}
