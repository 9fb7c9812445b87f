package security

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidKey is returned when the configured signing secret is missing,
// not valid base64, or too short to be safe for HMAC-SHA256.
var ErrInvalidKey = errors.New("invalid signing key")

// MinKeyBytes is the minimum decoded secret length accepted for HMAC-SHA256.
const MinKeyBytes = 32

// SigningKey is the symmetric key used to sign and verify tokens. It is
// decoded once at startup and passed to NewCodec; it must not change for the
// lifetime of the process, since downstream consumers verify tokens
// independently with the same secret.
type SigningKey []byte

// ParseSigningKey decodes a base64-encoded signing secret (standard or URL
// encoding, padded or raw). The secret is stored base64-encoded in the
// environment so it can carry arbitrary bytes.
func ParseSigningKey(secret string) (SigningKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrInvalidKey
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		key, err := enc.DecodeString(secret)
		if err != nil {
			continue
		}
		if len(key) < MinKeyBytes {
			return nil, ErrInvalidKey
		}
		return SigningKey(key), nil
	}
	return nil, ErrInvalidKey
}
