package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSignature is returned when a token's signature does not
	// verify against the configured key (tampered or foreign token).
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrMalformed is returned when a token cannot be parsed at all, or its
	// claims are structurally invalid (e.g. unknown kind, missing expiry).
	ErrMalformed = errors.New("malformed token")
)

// Kind is the closed set of token kinds. The zero value is KindAccess.
type Kind int

const (
	// KindAccess is the short-lived per-request credential.
	KindAccess Kind = iota
	// KindRefresh is the long-lived credential used only to mint new access tokens.
	KindRefresh
)

// String returns the wire value of the kind ("access" or "refresh").
func (k Kind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// ParseKind maps a wire discriminator to a Kind. Anything outside the closed
// set is rejected as malformed.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "access":
		return KindAccess, nil
	case "refresh":
		return KindRefresh, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrMalformed, s)
	}
}

// Claims is the signed token payload: subject is the employee id, Kind
// discriminates access from refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// Codec issues and verifies HMAC-SHA256 signed tokens. Verification is split
// from expiry checking so callers can distinguish a tampered token from a
// merely stale one.
type Codec struct {
	key        SigningKey
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec returns a Codec signing with key. accessTTL must be shorter than
// refreshTTL; both must be positive.
func NewCodec(key SigningKey, issuer string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}
	if accessTTL <= 0 || refreshTTL <= 0 || accessTTL >= refreshTTL {
		return nil, fmt.Errorf("token ttls: access %v must be positive and shorter than refresh %v", accessTTL, refreshTTL)
	}
	return &Codec{
		key:        key,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// TTL returns the configured lifetime for the given kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue builds a signed token for principal with iat = now and
// exp = now + TTL(kind). Each call produces a distinct token because the
// timestamps advance.
func (c *Codec) Issue(principal string, kind Kind) (token string, expiresAt time.Time, err error) {
	now := c.now()
	expiresAt = now.Add(c.TTL(kind))
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind: kind.String(),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.key))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify checks the token's signature and structure and returns its subject,
// kind, and expiry. It deliberately does not check expiry; use IsExpired for
// that, so an expired-but-authentic token is distinguishable from a tampered
// one.
func (c *Codec) Verify(token string) (principal string, kind Kind, expiresAt time.Time, err error) {
	claims, err := c.parse(token)
	if err != nil {
		return "", 0, time.Time{}, err
	}
	kind, err = ParseKind(claims.Kind)
	if err != nil {
		return "", 0, time.Time{}, err
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return "", 0, time.Time{}, ErrMalformed
	}
	return claims.Subject, kind, claims.ExpiresAt.Time, nil
}

// IsExpired reports whether the token's expiry has passed. The token must
// still carry a valid signature.
func (c *Codec) IsExpired(token string) (bool, error) {
	claims, err := c.parse(token)
	if err != nil {
		return false, err
	}
	if claims.ExpiresAt == nil {
		return false, ErrMalformed
	}
	return claims.ExpiresAt.Time.Before(c.now()), nil
}

// RemainingTTL returns how long until the token expires. Zero or negative
// means already expired. Used to size the TTL of session and revocation
// entries so they never outlive the token itself.
func (c *Codec) RemainingTTL(token string) (time.Duration, error) {
	claims, err := c.parse(token)
	if err != nil {
		return 0, err
	}
	if claims.ExpiresAt == nil {
		return 0, ErrMalformed
	}
	return claims.ExpiresAt.Time.Sub(c.now()), nil
}

// parse validates the signature only; expiry and other claim checks are the
// caller's responsibility.
func (c *Codec) parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return []byte(c.key), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}
