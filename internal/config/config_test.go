package config

import (
	"strings"
	"testing"
)

func validJWTConfig() Config {
	return Config{
		DatabaseURL:  "postgres://localhost:5432/parentpal",
		AuthMode:     "jwt",
		JWTSecret:    "test-secret-1234567890",
		JWTAlgorithm: "HS256",
	}
}

func TestValidateJWTMode(t *testing.T) {
	cfg := validJWTConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = " " },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.JWTSecret = "" },
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "insecure default secret",
			mutate:  func(c *Config) { c.JWTSecret = "change-me-in-production" },
			wantErr: "insecure default",
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.JWTSecret = "short" },
			wantErr: "too short",
		},
		{
			name:    "missing algorithm",
			mutate:  func(c *Config) { c.JWTAlgorithm = "" },
			wantErr: "JWT_ALGORITHM",
		},
		{
			name:    "unknown auth mode",
			mutate:  func(c *Config) { c.AuthMode = "basic" },
			wantErr: "AUTH_MODE",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validJWTConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateGoogleMode(t *testing.T) {
	cfg := Config{
		DatabaseURL: "postgres://localhost:5432/parentpal",
		AuthMode:    "google",
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_AUDIENCE") {
		t.Fatalf("expected audience error, got %v", err)
	}

	cfg.GoogleAudience = "parentpal-project"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.APIPrefix == "" || cfg.AppPort == "" {
		t.Fatalf("expected defaults to be populated: %+v", cfg)
	}
	if cfg.OpenAIBaseURL == "" {
		t.Fatalf("expected default OpenAI base URL")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PARENTPAL_TEST_CSV", "a, b ,,c")
	if got := getEnvCSV("PARENTPAL_TEST_CSV", nil); len(got) != 3 || got[1] != "b" {
		t.Fatalf("unexpected csv parse: %v", got)
	}
	if got := getEnvCSV("PARENTPAL_TEST_CSV_MISSING", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected fallback, got %v", got)
	}

	t.Setenv("PARENTPAL_TEST_INT", "42")
	if got := getEnvInt("PARENTPAL_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("PARENTPAL_TEST_INT", "not-a-number")
	if got := getEnvInt("PARENTPAL_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback on parse failure, got %d", got)
	}
}
