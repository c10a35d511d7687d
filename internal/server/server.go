package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Iron-Ham/squadron/internal/config"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
)

const shutdownTimeout = 5 * time.Second

// Server serves the HTTP API for one Facade.
type Server struct {
	facade         *orchestrator.Facade
	logger         *logging.Logger
	limiter        *rate.Limiter
	allowedOrigins []string
	addr           string
}

// New creates a Server. A non-positive rate limit disables limiting.
func New(facade *orchestrator.Facade, cfg config.ServerConfig, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Server{
		facade:         facade,
		logger:         logger.WithComponent("server"),
		allowedOrigins: cfg.AllowedOrigins,
		addr:           cfg.Addr,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	var h http.Handler = mux
	h = rateLimitMiddleware(s.limiter, h)
	h = securityHeadersMiddleware(h)
	h = loggingMiddleware(s.logger, h)
	return h
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api shutdown incomplete", "error", err.Error())
			_ = srv.Close()
		}
		return nil
	}
}
