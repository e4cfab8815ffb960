package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/config"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(c map[string]string, deps Dependencies) (Server, error) {
	if deps.Blog == nil || deps.Guard == nil || deps.Images == nil {
		return Server{}, fmt.Errorf("api: blog service, guard and image gateway are required")
	}

	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port) // Bind to 0.0.0.0 for external access

	// Capture startup time
	startupTime := time.Now()

	router := newRouter(deps, withConfig(c), withStartupTime(startupTime))

	// Get timeout values from config with sensible defaults
	readTimeout := time.Duration(config.GetInt(c, "READ_TIMEOUT_SECONDS", 30)) * time.Second
	writeTimeout := time.Duration(config.GetInt(c, "WRITE_TIMEOUT_SECONDS", 60)) * time.Second
	idleTimeout := time.Duration(config.GetInt(c, "IDLE_TIMEOUT_SECONDS", 120)) * time.Second

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
	config      map[string]string
	startupTime time.Time
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

func newRouter(deps Dependencies, opts ...func(*router)) *chi.Mux {
	var router router
	for _, opt := range opts {
		opt(&router)
	}
	if router.startupTime.IsZero() {
		router.startupTime = time.Now()
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(ColoredHTTPLoggingMiddleware)

	// Apply CORS middleware
	acceptedOrigins := config.GetList(router.config, "ACCEPTED_ORIGINS")
	if len(acceptedOrigins) > 0 {
		chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
		chiRouter.Use(corsMiddleware(acceptedOrigins))
	}

	settings := handlerSettings{
		defaultProject:   config.GetString(router.config, "DEFAULT_PROJECT_SLUG", ""),
		siteURL:          config.GetString(router.config, "PUBLIC_SITE_URL", "http://localhost:3000"),
		startupTime:      router.startupTime,
		loginMaxAttempts: config.GetInt(router.config, "LOGIN_MAX_ATTEMPTS", defaultLoginMaxAttempts),
		loginWindow:      time.Duration(config.GetInt(router.config, "LOGIN_WINDOW_MINUTES", 15)) * time.Minute,
	}

	// Initialize auth middleware and all handlers
	authMiddleware := newAuthMiddleware(deps.Guard)
	handlers := initializeHandlers(deps, settings, authMiddleware)

	// Setup all route types
	setupPublicRoutes(chiRouter, handlers, deps)
	setupAdminRoutes(chiRouter, handlers, authMiddleware)
	chiRouter.NotFound(notFound(NewResponder(log.Logger)))

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
