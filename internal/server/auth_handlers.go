package server

import (
	"errors"
	"net/http"
	"time"

	"token-authority/internal/authority"
)

type loginRequest struct {
	EmployeeID string `json:"employee_id"`
	Password   string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	pair, err := s.auth.Login(r.Context(), req.EmployeeID, req.Password)
	if err != nil {
		s.countLogin(err)
		s.writeServiceError(w, err)
		return
	}
	s.countLogin(nil)
	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

// handleLogout takes the access token from the Authorization header and
// does not use the auth middleware: revocation must work even for a token
// whose session record already expired.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractBearer(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Logouts.Inc()
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	access, expiresAt, err := s.auth.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Refreshes.Inc()
	}
	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access, AccessExpiresAt: expiresAt})
}

func (s *Server) countLogin(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.Logins.WithLabelValues("ok").Inc()
	case errors.Is(err, authority.ErrDuplicateSession):
		s.metrics.Logins.WithLabelValues("duplicate_session").Inc()
		s.metrics.Duplicates.Inc()
	default:
		s.metrics.Logins.WithLabelValues("error").Inc()
	}
}
