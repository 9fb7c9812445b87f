package security

import "time"

// NewTestCodec returns a Codec with a fixed 32-byte key and short TTLs for
// use in tests across packages.
func NewTestCodec() (*Codec, error) {
	key := SigningKey([]byte("0123456789abcdef0123456789abcdef"))
	return NewCodec(key, "token-authority-test", 15*time.Minute, 24*time.Hour)
}
