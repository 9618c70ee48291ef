package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/tally/internal/app"
	"github.com/bobmcallan/tally/internal/common"
)

// Server serves the ledger REST API. It owns the per-client rate limit table
// and the auth settings the middleware stack enforces.
type Server struct {
	app          *app.App
	config       *common.Config
	server       *http.Server
	logger       *common.Logger
	limiters     *clientLimiters
	shutdownChan chan struct{}
}

// SetShutdownChannel sets the channel that will be signaled when HTTP shutdown is requested.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer builds the mux and middleware stack for a.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:      a,
		config:   a.Config,
		logger:   a.Logger,
		limiters: newClientLimiters(a.Config.Server),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	sc := a.Config.Server
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", sc.Host, sc.Port),
		Handler:      applyMiddleware(mux, a.Logger, a.Config, s.limiters),
		ReadTimeout:  sc.GetReadTimeout(),
		WriteTimeout: sc.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// authMode names how callers are identified: bearer tokens when a JWT secret
// is configured, otherwise the X-Tally-User-ID header alone.
func (s *Server) authMode() string {
	if s.config.Auth.JWTSecret != "" {
		return "bearer+header"
	}
	return "header"
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	event := s.logger.Info().
		Str("addr", s.server.Addr).
		Str("auth", s.authMode()).
		Str("storage", s.config.Storage.Backend)
	if s.limiters != nil {
		event = event.
			Float64("rate_limit", float64(s.limiters.limit)).
			Int("rate_burst", s.limiters.burst).
			Dur("rate_idle", s.limiters.idle)
	} else {
		event = event.Bool("rate_limit_disabled", true)
	}
	event.Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
