package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupRoutes mounts the public, session-aware and authenticated routes.
func setupRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware, deps Dependencies) {
	r.Get("/healthz", handlers.healthHandler.check())
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if deps.Files != nil {
		r.Method(http.MethodGet, "/uploads/*", deps.Files)
	}

	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)

		// Gallery endpoints
		r.Get("/projects", handlers.galleryHandler.getView())
		r.Get("/project/{projectID}", handlers.projectHandler.getProject())
		r.Get("/tags", handlers.galleryHandler.getTags())
		r.Get("/categories", handlers.galleryHandler.getCategories())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.session)

			r.Post("/project", handlers.projectHandler.createProject())
			r.Post("/feedback", handlers.feedbackHandler.createFeedback())

			// Auth endpoints
			r.Get("/auth/session", handlers.authHandler.getSession())
			r.Get("/auth/oauth/{provider}", handlers.authHandler.startOAuth())
			r.Get("/auth/callback", handlers.authHandler.callback())

			// Authenticated routes
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.authenticate)

				r.Get("/my-projects", handlers.projectHandler.getMyProjects())
				r.Post("/auth/signout", handlers.authHandler.signOut())
			})
		})
	})
}
