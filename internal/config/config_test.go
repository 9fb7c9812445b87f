package config

import (
	"os"
	"testing"
	"time"
)

// 32 bytes, base64 raw standard.
const testSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY"

func setRequired(t *testing.T) {
	t.Helper()
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("JWT_SECRET_KEY", testSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want %q", cfg.RedisAddr, "localhost:6379")
	}
	if cfg.JWTIssuer != "token-authority" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "token-authority")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "24h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "24h")
	}
	if cfg.ProfileCacheTTL != "60m" {
		t.Errorf("ProfileCacheTTL = %q, want %q", cfg.ProfileCacheTTL, "60m")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.AuditTopic != "auth-audit" {
		t.Errorf("AuditTopic = %q, want %q", cfg.AuditTopic, "auth-audit")
	}
	if cfg.RosterRequestTopic != "user.request" || cfg.RosterResponseTopic != "user.response" {
		t.Errorf("roster topics = %q/%q", cfg.RosterRequestTopic, cfg.RosterResponseTopic)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setRequired(t)
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("REDIS_ADDR", "redis:6380")
	os.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Errorf("RedisAddr = %q, want %q", cfg.RedisAddr, "redis:6380")
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
}

func TestLoad_SecretKeyRequired(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should fail without JWT_SECRET_KEY")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_RefreshMustExceedAccess(t *testing.T) {
	setRequired(t)
	os.Setenv("JWT_ACCESS_TTL", "2h")
	os.Setenv("JWT_REFRESH_TTL", "1h")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when refresh TTL does not exceed access TTL")
	}
}

func TestLoad_BcryptCostRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false}, // falls back to the default
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestDurationAccessors(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		access  time.Duration
		refresh time.Duration
		cache   time.Duration
	}{
		{
			"explicit values",
			map[string]string{"JWT_ACCESS_TTL": "30m", "JWT_REFRESH_TTL": "336h", "PROFILE_CACHE_TTL": "2h"},
			30 * time.Minute, 336 * time.Hour, 2 * time.Hour,
		},
		{
			"invalid falls back",
			map[string]string{"JWT_ACCESS_TTL": "invalid", "JWT_REFRESH_TTL": "invalid", "PROFILE_CACHE_TTL": "invalid"},
			15 * time.Minute, 24 * time.Hour, 60 * time.Minute,
		},
		{
			"negative falls back",
			map[string]string{"JWT_ACCESS_TTL": "-5m", "JWT_REFRESH_TTL": "-1h", "PROFILE_CACHE_TTL": "-1h"},
			15 * time.Minute, 24 * time.Hour, 60 * time.Minute,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				os.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.AccessTTL(); got != tc.access {
				t.Errorf("AccessTTL = %v, want %v", got, tc.access)
			}
			if got := cfg.RefreshTTL(); got != tc.refresh {
				t.Errorf("RefreshTTL = %v, want %v", got, tc.refresh)
			}
			if got := cfg.CacheTTL(); got != tc.cache {
				t.Errorf("CacheTTL = %v, want %v", got, tc.cache)
			}
		})
	}
}

func TestKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
	}{
		{"empty", "", 0},
		{"single", "localhost:9092", 1},
		{"multiple with spaces", "a:9092, b:9092 ,c:9092", 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			if tc.value != "" {
				os.Setenv("KAFKA_BROKERS", tc.value)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.KafkaBrokersList(); len(got) != tc.want {
				t.Errorf("KafkaBrokersList = %v, want %d entries", got, tc.want)
			}
		})
	}
}
