package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "BUSINESS_TIMEZONE", "EMAIL_PROVIDER", "CALENDAR_PROVIDER", "CORS_ALLOWED_ORIGINS", "UPSTREAM_TIMEOUT", "STRIPE_CURRENCY"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BusinessTimezone != "America/New_York" {
		t.Fatalf("expected US Eastern default timezone, got %s", cfg.BusinessTimezone)
	}
	if cfg.EmailProvider != "stub" {
		t.Fatalf("expected stub email provider, got %s", cfg.EmailProvider)
	}
	if cfg.CalendarProvider != "none" {
		t.Fatalf("expected no calendar provider, got %s", cfg.CalendarProvider)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected default origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Fatalf("expected 10s upstream timeout, got %s", cfg.UpstreamTimeout)
	}
	if cfg.StripeCurrency != "cad" {
		t.Fatalf("expected cad currency, got %s", cfg.StripeCurrency)
	}
	if cfg.IsProduction() {
		t.Fatalf("development should not report production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "Production")
	t.Setenv("EMAIL_PROVIDER", " SendGrid ")
	t.Setenv("CALENDAR_PROVIDER", "GOOGLE")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://bundlebooth.ca, ,https://admin.bundlebooth.ca")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("STRIPE_CURRENCY", "USD")
	t.Setenv("CURRENCY_SYMBOL", "$")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env")
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("expected normalized provider, got %q", cfg.EmailProvider)
	}
	if cfg.CalendarProvider != "google" {
		t.Fatalf("expected normalized calendar provider, got %q", cfg.CalendarProvider)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.bundlebooth.ca" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitPerMinute != 30 {
		t.Fatalf("expected rate limit override, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.UpstreamTimeout != 3*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.UpstreamTimeout)
	}
	if cfg.StripeCurrency != "usd" {
		t.Fatalf("expected lower-case currency, got %s", cfg.StripeCurrency)
	}
	if cfg.CurrencySymbol != "$" {
		t.Fatalf("expected currency symbol override, got %s", cfg.CurrencySymbol)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", true},
		{"false", false},
		{"0", false},
		{"TRUE", true},
		{"not-a-bool", true},
	}
	for _, tt := range tests {
		t.Setenv("RATE_LIMIT_FAIL_OPEN", tt.value)
		if got := Load().RateLimitFailOpen; got != tt.want {
			t.Errorf("RATE_LIMIT_FAIL_OPEN=%q: got %v, want %v", tt.value, got, tt.want)
		}
	}
}
