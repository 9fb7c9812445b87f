package security

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestParseSigningKey(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, 32)

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"standard padded", base64.StdEncoding.EncodeToString(raw), false},
		{"url raw", base64.RawURLEncoding.EncodeToString(raw), false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"not base64", "***not-base64***", true},
		{"too short", base64.StdEncoding.EncodeToString([]byte("short")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseSigningKey(tt.secret)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Fatalf("want ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSigningKey: %v", err)
			}
			if !bytes.Equal(key, raw) {
				t.Fatalf("decoded key mismatch")
			}
		})
	}
}
