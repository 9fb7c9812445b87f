// Package server exposes the token authority over a JSON HTTP surface:
// the auth lifecycle under /auth and the administrative employee
// operations under /users, plus health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"token-authority/internal/authority"
	"token-authority/internal/kvstore"
	"token-authority/internal/obs"
	"token-authority/internal/security"
	userservice "token-authority/internal/user/service"
)

// Server wires the authority and user services to HTTP handlers.
type Server struct {
	auth    *authority.Service
	users   *userservice.Service
	metrics *obs.AuthMetrics
	health  func(context.Context) error
	log     *zap.Logger
}

// New returns a Server. health is polled by /healthz; nil means always
// healthy. metrics may be nil to disable counters.
func New(auth *authority.Service, users *userservice.Service, metrics *obs.AuthMetrics, health func(context.Context) error, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, users: users, metrics: metrics, health: health, log: log}
}

// Handler builds the route table. Traced routes are wrapped individually so
// span names carry the route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/register", s.requireAdmin(s.handleRegister))
	mux.HandleFunc("POST /auth/password", s.requireAuth(s.handleChangePassword))

	mux.HandleFunc("GET /users/search", s.requireAuth(s.handleSearch))
	mux.HandleFunc("PATCH /users", s.requireAdmin(s.handleUpdate))
	mux.HandleFunc("DELETE /users", s.requireAdmin(s.handleDelete))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", obs.MetricsHandler())

	return obs.HTTPMiddleware(mux, "token-authority")
}

// NewHTTPServer wraps the route table in an http.Server with sane timeouts.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := s.health(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy", "dependency check failed")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// writeServiceError maps typed service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authority.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid employee id or password")
	case errors.Is(err, authority.ErrDuplicateSession):
		writeError(w, http.StatusConflict, "duplicate_session", "an active session already exists for this employee")
	case errors.Is(err, authority.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, "expired_token", "token has expired")
	case errors.Is(err, authority.ErrRevokedToken):
		writeError(w, http.StatusUnauthorized, "revoked_token", "token has been revoked")
	case errors.Is(err, authority.ErrUnsupportedTokenKind):
		writeError(w, http.StatusBadRequest, "unsupported_token_kind", "wrong token kind for this operation")
	case errors.Is(err, security.ErrInvalidSignature), errors.Is(err, security.ErrMalformed):
		writeError(w, http.StatusUnauthorized, "invalid_token", "token failed verification")
	case errors.Is(err, userservice.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "employee not found")
	case errors.Is(err, userservice.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate_employee", "employee id already registered")
	case errors.Is(err, userservice.ErrWrongPassword):
		writeError(w, http.StatusBadRequest, "wrong_password", "current password does not match")
	case errors.Is(err, userservice.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, kvstore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "session store unavailable")
	default:
		s.log.Error("unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
