package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adornalabs/tryon-api/internal/api"
	apiMiddleware "github.com/adornalabs/tryon-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware, using the application's services to build the handlers.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.userService, app.jwtService, app.logger)
	tryOnHandler := api.NewTryOnHandler(app.tryOnService, app.blobStore, app.logger)
	uploadHandler := api.NewUploadHandler(app.blobStore, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/uploads", uploadHandler.Upload)
			r.Get("/images/url", uploadHandler.ResolveURL)

			r.Post("/tryons", tryOnHandler.Create)
			r.Get("/tryons", tryOnHandler.List)
			r.Get("/tryons/{id}", tryOnHandler.Get)
			r.Post("/tryons/{id}/retry", tryOnHandler.Retry)
			r.Delete("/tryons/{id}", tryOnHandler.Delete)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
