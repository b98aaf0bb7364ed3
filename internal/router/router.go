package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/handler"
	mw "github.com/parisxmas/OxiDB/OxiForms/internal/middleware"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Forms     *handler.FormHandler
	Responses *handler.ResponseHandler
	Webhooks  *handler.WebhookHandler
	Dashboard *handler.DashboardHandler
}

func New(jwtSecret string, corsOrigins []string, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Tracing)
	r.Use(mw.Logger)
	r.Use(mw.CORS(corsOrigins))

	requireAuth := auth.Middleware(jwtSecret)

	r.Get("/health", h.Dashboard.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/airtable", h.Auth.Start)
			r.Get("/airtable/callback", h.Auth.Callback)
			r.Post("/logout", h.Auth.Logout)
			r.With(requireAuth).Get("/me", h.Auth.Me)
		})

		r.With(requireAuth).Get("/dashboard", h.Dashboard.Dashboard)

		r.Route("/forms", func(r chi.Router) {
			// Public: viewing and evaluating a published form
			r.Get("/{formId}", h.Forms.Get)
			r.Post("/{formId}/visibility", h.Forms.Visibility)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/bases", h.Forms.Bases)
				r.Get("/bases/{baseId}/tables", h.Forms.Tables)
				r.Get("/bases/{baseId}/tables/{tableId}/fields", h.Forms.Fields)
				r.Get("/", h.Forms.List)
				r.Post("/", h.Forms.Create)
				r.Put("/{formId}", h.Forms.Update)
				r.Delete("/{formId}", h.Forms.Delete)
			})
		})

		r.Route("/responses", func(r chi.Router) {
			r.Post("/{formId}", h.Responses.Submit)
			r.With(requireAuth).Get("/{formId}", h.Responses.List)
			r.With(requireAuth).Get("/{formId}/{responseId}", h.Responses.Get)
		})

		r.Post("/webhooks/airtable", h.Webhooks.Airtable)
	})

	return r
}
