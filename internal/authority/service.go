// Package authority is the public façade of the token authority: it issues,
// refreshes, and revokes employee credentials while enforcing the
// single-active-session policy. Callers downstream trust only that a token
// was issued here and has not been revoked.
package authority

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"token-authority/internal/audit"
	"token-authority/internal/obs"
	"token-authority/internal/profile"
	"token-authority/internal/security"
	"token-authority/internal/session"
	"token-authority/internal/user/domain"
)

// Sentinel errors for the authentication surface; the handler layer maps
// them to HTTP statuses.
var (
	// ErrInvalidCredentials covers both an unknown employee id and a wrong
	// password; the two are deliberately indistinguishable to prevent
	// principal enumeration.
	ErrInvalidCredentials = errors.New("employee id or password is incorrect")
	// ErrExpiredToken is returned for an authentic token past its expiry.
	ErrExpiredToken = errors.New("token expired")
	// ErrUnsupportedTokenKind is returned when the wrong token kind is
	// presented for an operation (e.g. a refresh token at logout).
	ErrUnsupportedTokenKind = errors.New("unsupported token kind for this operation")
	// ErrRevokedToken is returned for an authentic, unexpired token that was
	// explicitly invalidated or superseded before its natural expiry.
	ErrRevokedToken = errors.New("token revoked")
	// ErrDuplicateSession re-exports the guard's sentinel so callers depend
	// on one package.
	ErrDuplicateSession = session.ErrDuplicateSession
)

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// ProfileRepo is the minimal profile-store boundary the authority depends on.
type ProfileRepo interface {
	// FindByEmployeeID returns nil, nil when the employee does not exist.
	FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error)
}

// Service composes the codec, guard, and caches into the login/logout/refresh
// operations.
type Service struct {
	profiles ProfileRepo
	hasher   *security.Hasher
	codec    *security.Codec
	guard    *session.Guard
	cache    *profile.Cache
	events   audit.Emitter
	log      *zap.Logger
}

// NewService returns a Service with the given dependencies. events may be
// nil to disable audit emission.
func NewService(
	profiles ProfileRepo,
	hasher *security.Hasher,
	codec *security.Codec,
	guard *session.Guard,
	cache *profile.Cache,
	events audit.Emitter,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		profiles: profiles,
		hasher:   hasher,
		codec:    codec,
		guard:    guard,
		cache:    cache,
		events:   events,
		log:      log,
	}
}

// Login verifies the employee's credentials, enforces the single-session
// policy, and returns a fresh access/refresh pair. On ErrDuplicateSession
// both freshly minted tokens are discarded; they are never handed out when
// the session could not be acquired. No partial state survives a failure:
// if cache population fails after acquisition, the session is released again.
func (s *Service) Login(ctx context.Context, employeeID, password string) (*TokenPair, error) {
	emp, err := s.profiles.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("look up employee: %w", err)
	}
	if emp == nil || !emp.Active {
		s.emit(audit.EventLogin, employeeID, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(emp.PasswordHash, []byte(password)); err != nil {
		s.emit(audit.EventLogin, employeeID, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	access, accessExp, err := s.codec.Issue(employeeID, security.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.codec.Issue(employeeID, security.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.guard.Acquire(ctx, employeeID, access, s.codec.TTL(security.KindAccess)); err != nil {
		if errors.Is(err, session.ErrDuplicateSession) {
			s.emit(audit.EventLogin, employeeID, "duplicate_session")
		}
		return nil, err
	}

	if err := s.cache.Put(ctx, profile.Snapshot{
		ID:         emp.ID,
		EmployeeID: emp.EmployeeID,
		Name:       emp.Name,
		Role:       string(emp.Role),
		Scope:      emp.Scope,
		Shift:      emp.Shift,
	}); err != nil {
		// Compensating release: the session key must not stay set when the
		// caller never receives the tokens. Runs detached from ctx so a
		// cancelled request still cleans up.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := s.guard.Release(releaseCtx, employeeID, access, s.codec.TTL(security.KindAccess)); relErr != nil {
			s.log.Error("compensating session release failed",
				zap.String("employee_id", employeeID),
				zap.Error(relErr))
		}
		return nil, fmt.Errorf("populate profile cache: %w", err)
	}

	obs.WithTrace(ctx, s.log).Info("login succeeded", zap.String("employee_id", employeeID))
	s.emit(audit.EventLogin, employeeID, "ok")
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Logout verifies the presented access token, frees the employee's session
// slot, and marks the token revoked for its remaining lifetime. A second
// logout of the same token is a no-op that refreshes the marker.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	principal, kind, _, err := s.codec.Verify(accessToken)
	if err != nil {
		return err
	}
	expired, err := s.codec.IsExpired(accessToken)
	if err != nil {
		return err
	}
	if expired {
		return ErrExpiredToken
	}
	if kind != security.KindAccess {
		return ErrUnsupportedTokenKind
	}

	remaining, err := s.codec.RemainingTTL(accessToken)
	if err != nil {
		return err
	}
	if err := s.guard.Release(ctx, principal, accessToken, remaining); err != nil {
		return err
	}

	obs.WithTrace(ctx, s.log).Info("logout succeeded", zap.String("employee_id", principal))
	s.emit(audit.EventLogout, principal, "ok")
	return nil
}

// RefreshAccessToken exchanges a valid refresh token for a new access token.
// The refresh token's validity already proves a legitimate session holder,
// so no duplicate check runs; the session slot is re-bound to the new access
// token and the profile cache TTL is extended alongside it.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, err error) {
	principal, kind, _, err := s.codec.Verify(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	expired, err := s.codec.IsExpired(refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	if expired {
		return "", time.Time{}, ErrExpiredToken
	}
	if kind != security.KindRefresh {
		return "", time.Time{}, ErrUnsupportedTokenKind
	}

	if err := s.cache.ExtendTTL(ctx, principal); err != nil {
		return "", time.Time{}, err
	}

	access, accessExp, err := s.codec.Issue(principal, security.KindAccess)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue access token: %w", err)
	}
	if err := s.guard.Rotate(ctx, principal, access, s.codec.TTL(security.KindAccess)); err != nil {
		return "", time.Time{}, err
	}

	obs.WithTrace(ctx, s.log).Info("access token refreshed", zap.String("employee_id", principal))
	s.emit(audit.EventRefresh, principal, "ok")
	return access, accessExp, nil
}

// VerifyAccess checks an access token end to end for resource middleware:
// signature, expiry, kind, the revocation overlay, and that the token is the
// one currently bound to the principal's session. A token superseded by a
// refresh or by a later login is rejected even though its signature still
// verifies. Returns the principal.
func (s *Service) VerifyAccess(ctx context.Context, accessToken string) (string, error) {
	principal, kind, _, err := s.codec.Verify(accessToken)
	if err != nil {
		return "", err
	}
	expired, err := s.codec.IsExpired(accessToken)
	if err != nil {
		return "", err
	}
	if expired {
		return "", ErrExpiredToken
	}
	if kind != security.KindAccess {
		return "", ErrUnsupportedTokenKind
	}
	revoked, err := s.guard.IsRevoked(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrRevokedToken
	}
	active, ok, err := s.guard.ActiveToken(ctx, principal)
	if err != nil {
		return "", err
	}
	if !ok || active != accessToken {
		return "", ErrRevokedToken
	}
	return principal, nil
}

// Profile returns the employee's cached snapshot, falling back to the
// primary store on a miss. The cache is an optimization, not a source of
// truth, so a miss is resolved rather than surfaced.
func (s *Service) Profile(ctx context.Context, employeeID string) (profile.Snapshot, error) {
	snap, ok, err := s.cache.Get(ctx, employeeID)
	if err != nil {
		obs.WithTrace(ctx, s.log).Warn("profile cache read failed", zap.String("employee_id", employeeID), zap.Error(err))
	}
	if ok {
		return snap, nil
	}
	emp, err := s.profiles.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return profile.Snapshot{}, fmt.Errorf("look up employee: %w", err)
	}
	if emp == nil {
		return profile.Snapshot{Name: "Unknown", Role: "Unknown"}, nil
	}
	return profile.Snapshot{
		ID:         emp.ID,
		EmployeeID: emp.EmployeeID,
		Name:       emp.Name,
		Role:       string(emp.Role),
		Scope:      emp.Scope,
		Shift:      emp.Shift,
	}, nil
}

func (s *Service) emit(eventType, employeeID, outcome string) {
	audit.Async(s.events, s.log, audit.Event{
		Type:       eventType,
		EmployeeID: employeeID,
		Outcome:    outcome,
	})
}
