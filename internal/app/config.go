package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	UserAgent      string

	TMDBReadToken string
	TMDBBaseURL   string
	TMDBCacheTTL  time.Duration

	AllowedOrigin string
	WatchRegion   string

	RedisURL      string
	SessionTTL    time.Duration
	CacheDisabled bool

	RateLimitRPS   float64
	RateLimitBurst int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:      getEnv("RECO_USER_AGENT", "moov-reco/1.0"),
		TMDBReadToken:  strings.TrimSpace(os.Getenv("TMDB_READ_TOKEN")),
		TMDBBaseURL:    getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBCacheTTL:   time.Duration(getEnvInt("TMDB_CACHE_TTL_DAYS", 7)) * 24 * time.Hour,
		AllowedOrigin:  getEnv("ALLOWED_ORIGIN", "*"),
		WatchRegion:    strings.ToUpper(getEnv("WATCH_REGION", "CA")),
		RedisURL:       getEnv("REDIS_URL", ""),
		SessionTTL:     time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		CacheDisabled:  getEnvBool("RECO_CACHE_DISABLED", false),
		RateLimitRPS:   float64(getEnvInt("RATE_LIMIT_RPS", 25)),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 50),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
