package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("APP_SECRET_KEY", "")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("REVERIFY_AFTER_DAYS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	c := FromEnv()
	if c.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", c.Port)
	}
	if c.ReverifyAfter != 14*24*time.Hour {
		t.Errorf("Expected 14 day reverify window, got %s", c.ReverifyAfter)
	}
	if c.ResetTokenTTL != 900*time.Second {
		t.Errorf("Expected 900s reset ttl, got %s", c.ResetTokenTTL)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != c.SiteURL {
		t.Errorf("Expected origins to default to the site URL, got %v", c.AllowedOrigins)
	}
	if c.AppSecretKey != "s3cret" {
		t.Errorf("Expected app secret to fall back to session secret, got %q", c.AppSecretKey)
	}
	if c.RedisEnabled() {
		t.Errorf("Redis should be disabled without REDIS_HOST")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MARKET_INTERVAL", "30")
	t.Setenv("VERIFY_CODE_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SITE_URL", "https://tickertalk.example/")
	t.Setenv("REDIS_PORT", "not-a-number")

	c := FromEnv()
	if c.MarketInterval != 30*time.Second {
		t.Errorf("Expected bare seconds to parse, got %s", c.MarketInterval)
	}
	if c.VerifyCodeTTL != 2*time.Minute {
		t.Errorf("Expected 2m, got %s", c.VerifyCodeTTL)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", c.AllowedOrigins)
	}
	if c.SiteURL != "https://tickertalk.example" {
		t.Errorf("Expected trailing slash trimmed, got %s", c.SiteURL)
	}
	if c.RedisPort != 6379 {
		t.Errorf("Expected invalid int to fall back to default, got %d", c.RedisPort)
	}
}

func TestDSN(t *testing.T) {
	c := AppConfig{DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "n"}
	want := "host=db user=u password=p dbname=n port=5433 sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	c.DatabaseURL = "postgres://x"
	if got := c.DSN(); got != "postgres://x" {
		t.Errorf("Expected DATABASE_URL to win, got %q", got)
	}
}
