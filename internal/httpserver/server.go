package httpserver

import (
	"context"
	"net/http"

	"authapi/backend/internal/config"
	"authapi/backend/internal/logging"
)

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer  *http.Server
	router      *http.ServeMux
	authService AuthService
	log         logging.Logger
	addr        string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.HTTPConfig, authService AuthService, log logging.Logger) *Server {
	mux := http.NewServeMux()
	addr := cfg.Addr()

	srv := &Server{
		router:      mux,
		authService: authService,
		log:         log,
		addr:        addr,
	}
	handler := withRequestID(withLogging(withRecovery(withCORS(mux, cfg.AllowedOrigins), log), log))

	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	srv.registerRoutes()
	return srv
}

// Start serves HTTP on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
