package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/projectdal-backend/config"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(deps Dependencies, c map[string]string) (Server, error) {
	if deps.Catalog == nil || deps.Projects == nil || deps.AuthProvider == nil || deps.Storage == nil || deps.Feedback == nil {
		return Server{}, fmt.Errorf("api: incomplete dependencies")
	}

	// Ensure correct port is set
	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port) // Bind to 0.0.0.0 for external access

	// Capture startup time
	startupTime := time.Now()

	router := newRouter(deps,
		withConfig(c),
		withStartupTime(startupTime),
		withUploadLimits(
			int64(config.GetInt(c, "MAX_UPLOAD_MB", 64))<<20,
			config.GetInt(c, "UPLOAD_CONCURRENCY", 4),
		),
		withSecureCookies(config.GetBool(c, "SECURE_COOKIES", true)),
	)

	// Get timeout values from config with sensible defaults
	readTimeout := time.Duration(config.GetInt(c, "READ_TIMEOUT_SECONDS", 180)) * time.Second
	writeTimeout := time.Duration(config.GetInt(c, "WRITE_TIMEOUT_SECONDS", 180)) * time.Second
	idleTimeout := time.Duration(config.GetInt(c, "IDLE_TIMEOUT_SECONDS", 180)) * time.Second

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  readTimeout,  // Timeout for reading the entire request
		WriteTimeout: writeTimeout, // Timeout for writing the response
		IdleTimeout:  idleTimeout,  // Timeout for idle connections
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config            map[string]string
	startupTime       time.Time
	maxUploadBytes    int64
	uploadConcurrency int
	secureCookies     bool
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func withUploadLimits(maxBytes int64, concurrency int) func(*router) {
	return func(r *router) {
		r.maxUploadBytes = maxBytes
		r.uploadConcurrency = concurrency
	}
}

func withSecureCookies(secure bool) func(*router) {
	return func(r *router) {
		r.secureCookies = secure
	}
}

func newRouter(deps Dependencies, opts ...func(*router)) *chi.Mux {
	router := router{maxUploadBytes: 64 << 20, secureCookies: true}
	for _, opt := range opts {
		opt(&router)
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)

	// Initialize all handlers
	handlers := initializeHandlers(deps, router.config, router)

	// Initialize auth middleware
	redirectURL := config.GetString(router.config, "OAUTH_REDIRECT_URL", "")
	oauthProviders := config.GetList(router.config, "OAUTH_PROVIDERS")
	if len(oauthProviders) == 0 {
		oauthProviders = []string{"github", "google"}
	}
	authMiddleware := newAuthMiddleware(deps.AuthProvider, redirectURL, oauthProviders)

	// Apply CORS middleware
	acceptedOrigins := config.GetList(router.config, "ACCEPTED_ORIGINS")
	if len(acceptedOrigins) == 0 {
		acceptedOrigins = []string{"http://localhost:3000"}
	}
	chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
	chiRouter.Use(corsMiddleware(acceptedOrigins))

	// Setup all route types
	setupRoutes(chiRouter, handlers, authMiddleware, deps)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
