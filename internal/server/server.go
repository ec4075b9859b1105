// Package server assembles the HTTP API and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/iudanet/eduhub/internal/server/auth"
	"github.com/iudanet/eduhub/internal/server/handlers"
	"github.com/iudanet/eduhub/internal/server/metrics"
	"github.com/iudanet/eduhub/internal/server/middleware"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"
)

// Deps are the collaborators the router needs
type Deps struct {
	Logger  *slog.Logger
	Service *auth.Service
	Store   handlers.Pinger
	Metrics *metrics.Metrics
	Version string
	Cookies handlers.CookieConfig
}

// NewRouter registers every route and wraps the mux in the common middleware chain:
// recovery, then request logging, then metrics.
func NewRouter(d Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(d.Logger, d.Service, d.Cookies)
	userHandler := handlers.NewUserHandler(d.Logger, d.Service)
	healthHandler := handlers.NewHealthHandler(d.Logger, d.Store, d.Version)

	requireAuth := middleware.AuthMiddleware(d.Logger, d.Service)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET "+healthPath, healthHandler.Health)
	mux.Handle("GET "+metricsPath, d.Metrics.Handler())

	mux.HandleFunc("POST /api/v1/users/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/users/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", authHandler.Refresh)
	mux.Handle("POST /api/v1/users/logout", protected(authHandler.Logout))
	mux.Handle("PATCH /api/v1/users/change-password", protected(authHandler.ChangePassword))

	mux.Handle("GET /api/v1/users/me", protected(userHandler.Me))
	mux.Handle("PATCH /api/v1/users/update-account", protected(userHandler.UpdateAccount))
	mux.Handle("POST /api/v1/users/lookup", protected(userHandler.Lookup))
	mux.Handle("GET /api/v1/users/{id}", protected(userHandler.Get))
	mux.Handle("DELETE /api/v1/users/{id}", protected(userHandler.Delete))

	var h http.Handler = mux
	h = middleware.MetricsMiddleware(d.Metrics)(h)
	h = middleware.LoggingWithSkip(d.Logger, []string{healthPath, metricsPath})(h)
	h = middleware.RecoveryMiddleware(d.Logger)(h)

	return h
}

// New returns an http.Server with conservative timeouts.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run serves on ln until ctx is cancelled, then shuts down gracefully,
// waiting at most shutdownTimeout for in-flight requests.
func Run(ctx context.Context, logger *slog.Logger, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}
