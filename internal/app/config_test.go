package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "REQUEST_TIMEOUT_SECONDS", "LOG_LEVEL", "LOG_FORMAT",
		"TMDB_READ_TOKEN", "TMDB_BASE_URL", "TMDB_CACHE_TTL_DAYS",
		"ALLOWED_ORIGIN", "WATCH_REGION", "REDIS_URL", "SESSION_TTL_MINUTES",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log settings = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.TMDBBaseURL != "https://api.themoviedb.org/3" {
		t.Errorf("TMDBBaseURL = %q", cfg.TMDBBaseURL)
	}
	if cfg.TMDBCacheTTL != 7*24*time.Hour {
		t.Errorf("TMDBCacheTTL = %v", cfg.TMDBCacheTTL)
	}
	if cfg.AllowedOrigin != "*" {
		t.Errorf("AllowedOrigin = %q", cfg.AllowedOrigin)
	}
	if cfg.WatchRegion != "CA" {
		t.Errorf("WatchRegion = %q", cfg.WatchRegion)
	}
	if cfg.SessionTTL != 120*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.RateLimitRPS != 25 || cfg.RateLimitBurst != 50 {
		t.Errorf("rate limit = %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TMDB_READ_TOKEN", "  secret  ")
	t.Setenv("WATCH_REGION", "us")
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("TMDB_CACHE_TTL_DAYS", "1")

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want lowercased", cfg.LogLevel)
	}
	if cfg.TMDBReadToken != "secret" {
		t.Errorf("TMDBReadToken = %q, want trimmed", cfg.TMDBReadToken)
	}
	if cfg.WatchRegion != "US" {
		t.Errorf("WatchRegion = %q, want uppercased", cfg.WatchRegion)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.TMDBCacheTTL != 24*time.Hour {
		t.Errorf("TMDBCacheTTL = %v", cfg.TMDBCacheTTL)
	}
}

func TestGetEnvBool(t *testing.T) {
	cases := map[string]bool{
		"1": true, "true": true, "YES": true, "on": true,
		"0": false, "false": false, "off": false, "maybe": false, "": false,
	}
	for raw, want := range cases {
		t.Setenv("RECO_CACHE_DISABLED", raw)
		if got := getEnvBool("RECO_CACHE_DISABLED", false); got != want {
			t.Errorf("getEnvBool(%q) = %v, want %v", raw, got, want)
		}
	}
	t.Setenv("RECO_CACHE_DISABLED", "garbage")
	if !getEnvBool("RECO_CACHE_DISABLED", true) {
		t.Error("unparseable value must keep the fallback")
	}
}

func TestGetEnvIntRejectsGarbage(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "soon")
	if got := getEnvInt("SESSION_TTL_MINUTES", 120); got != 120 {
		t.Errorf("getEnvInt = %d, want fallback", got)
	}
	t.Setenv("SESSION_TTL_MINUTES", "-5")
	if got := getEnvInt("SESSION_TTL_MINUTES", 120); got != 120 {
		t.Errorf("getEnvInt = %d, want fallback for non-positive", got)
	}
}
