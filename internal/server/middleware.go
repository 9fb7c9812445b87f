package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const bearerPrefix = "bearer "

// extractBearer returns the Bearer token from the Authorization header, or
// "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// requireAuth validates the Bearer access token (signature, expiry, kind,
// revocation) and sets the principal in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
			return
		}
		principal, err := s.auth.VerifyAccess(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid authorization")
			return
		}
		next(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	}
}

// requireAdmin runs after requireAuth and resolves the caller's role from
// the profile cache, falling back to the repository.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := GetPrincipal(r.Context())
		snap, err := s.auth.Profile(r.Context(), principal)
		if err != nil {
			s.log.Error("role lookup failed", zap.String("employee_id", principal), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "role lookup failed")
			return
		}
		if snap.Role != "ADMIN" {
			writeError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next(w, r)
	})
}
