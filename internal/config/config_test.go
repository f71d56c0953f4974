// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
)

const testSecret = "Abc123!xyz-long-enough-secret-key-0042"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PIPOL_SECRET_KEY", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
	if got := cfg.ServerAddr(); got != "localhost:8080" {
		t.Errorf("ServerAddr() = %q, want %q", got, "localhost:8080")
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true with empty PIPOL_REDIS_URL")
	}
	if cfg.GeoIPEnabled() {
		t.Error("GeoIPEnabled() = true with empty PIPOL_GEOIP_DB_PATH")
	}
	if cfg.MaxUploadBytes() != 20<<20 {
		t.Errorf("MaxUploadBytes() = %d, want %d", cfg.MaxUploadBytes(), 20<<20)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want %q in development", cfg.LogFormat, "text")
	}
}

func TestLoadProductionLogFormat(t *testing.T) {
	t.Setenv("PIPOL_SECRET_KEY", testSecret)
	t.Setenv("PIPOL_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want %q in production", cfg.LogFormat, "json")
	}
}

func TestLoadSecretKeyValidation(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid", testSecret, false},
		{"missing", "", true},
		{"too short", "short-secret", true},
		{"known weak", "change-me-to-32-byte-secret-key!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PIPOL_SECRET_KEY", tt.secret)
			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("PIPOL_SECRET_KEY", testSecret)
	t.Setenv("PIPOL_CORS_ALLOWED_ORIGINS", "https://app.pipol.example,https://staging.pipol.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins length = %d, want 2", len(cfg.CORSAllowedOrigins))
	}
	if cfg.CORSAllowedOrigins[0] != "https://app.pipol.example" {
		t.Errorf("CORSAllowedOrigins[0] = %q", cfg.CORSAllowedOrigins[0])
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"alllowercaseonly", false},
		{"lowerAndUPPER", false},
		{"lowerUPPER123", true},
		{"lower123!special", true},
		{strings.Repeat("a", 40), false},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
