package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "moovstream/recoservice/internal/api/http"
	"moovstream/recoservice/internal/app"
	"moovstream/recoservice/internal/metrics"
	"moovstream/recoservice/internal/reco"
	"moovstream/recoservice/internal/telemetry"
	"moovstream/recoservice/internal/tmdb"
	"moovstream/recoservice/internal/web"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "moov-reco")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "moov-reco"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("watchRegion", cfg.WatchRegion),
		slog.String("allowedOrigin", cfg.AllowedOrigin),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasTMDBToken", cfg.TMDBReadToken != ""),
		slog.Duration("tmdbCacheTTL", cfg.TMDBCacheTTL),
		slog.Duration("sessionTTL", cfg.SessionTTL),
	)
	if cfg.TMDBReadToken == "" {
		logger.Warn("TMDB_READ_TOKEN not set; upstream requests and the relay will fail")
	}

	redisClient := connectRedis(cfg, logger)

	cacheRedis := redisClient
	if cfg.CacheDisabled {
		logger.Info("tmdb response cache disabled")
		cacheRedis = nil
	}
	tmdbClient := tmdb.NewClient(tmdb.Config{
		ReadToken: cfg.TMDBReadToken,
		BaseURL:   cfg.TMDBBaseURL,
		Client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Redis:    cacheRedis,
		CacheTTL: cfg.TMDBCacheTTL,
	})

	recoService := reco.NewService(tmdbClient,
		reco.WithLogger(logger),
		reco.WithRegion(cfg.WatchRegion),
		reco.WithSessions(buildSessionStore(cfg, redisClient)),
	)

	presenter, err := web.NewPresenter()
	if err != nil {
		logger.Error("presenter init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handler := apihttp.NewServer(recoService, presenter,
		apihttp.WithLogger(logger),
		apihttp.WithRelay(tmdbClient),
		apihttp.WithAllowedOrigin(cfg.AllowedOrigin),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Handler()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("recommendation service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.String("region", cfg.WatchRegion),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("recommendation service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// connectRedis returns a verified Redis client, or nil when Redis is not
// configured or unreachable; every caller treats nil as "memory only".
func connectRedis(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, continuing without redis", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, continuing without redis", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

func buildSessionStore(cfg app.Config, redisClient *redis.Client) reco.SessionStore {
	memory := reco.NewMemoryStore(cfg.SessionTTL)
	if redisClient == nil {
		return memory
	}
	return reco.NewMirroredStore(memory, reco.NewRedisStore(redisClient, cfg.SessionTTL))
}
