package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"moovstream/recoservice/internal/domain"
	"moovstream/recoservice/internal/reco"
	"moovstream/recoservice/internal/web"
)

// RecommendService runs the selection pipeline and serves "recommend another"
// from its session cache.
type RecommendService interface {
	Recommend(ctx context.Context, sessionID string, prefs domain.Preferences) (domain.Recommendation, error)
	RecommendAnother(ctx context.Context, sessionID string) (domain.Recommendation, error)
}

// RelayClient is the slice of the metadata client the relay endpoint needs.
type RelayClient interface {
	Enabled() bool
	Passthrough(ctx context.Context, path string, params url.Values) (int, string, []byte, error)
}

type Server struct {
	reco          RecommendService
	relay         RelayClient
	presenter     *web.Presenter
	logger        *slog.Logger
	allowedOrigin string
	rateRPS       float64
	rateBurst     int
}

const (
	sessionCookieName = "moov_session"
	sessionCookieAge  = 2 * time.Hour
	maxBodyBytes      = 64 * 1024
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRelay(relay RelayClient) ServerOption {
	return func(s *Server) {
		s.relay = relay
	}
}

func WithAllowedOrigin(origin string) ServerOption {
	return func(s *Server) {
		s.allowedOrigin = origin
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

func NewServer(recoService RecommendService, presenter *web.Presenter, options ...ServerOption) *Server {
	server := &Server{
		reco:          recoService,
		presenter:     presenter,
		logger:        slog.Default(),
		allowedOrigin: "*",
		rateRPS:       25,
		rateBurst:     50,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/tmdb", s.handleRelay)
	mux.HandleFunc("/api/recommend", s.handleRecommend)
	mux.HandleFunc("/api/recommend/another", s.handleRecommendAnother)
	mux.HandleFunc("/partials/", s.handlePartial)
	mux.HandleFunc("/static/", s.handleStatic)
	mux.HandleFunc("/", s.handleIndex)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "moov-reco",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

type recommendResponse struct {
	Status         string                 `json:"status"`
	Message        string                 `json:"message,omitempty"`
	Recommendation *domain.Recommendation `json:"recommendation,omitempty"`
	Prefs          *domain.Preferences    `json:"prefs,omitempty"`
	HTML           string                 `json:"html,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var prefs domain.Preferences
	if err := decodeJSONBody(r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	sessionID := s.sessionID(w, r)
	rec, err := s.reco.Recommend(r.Context(), sessionID, prefs)
	s.respondRecommendation(w, r, rec, prefs, err)
}

func (s *Server) handleRecommendAnother(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := s.sessionID(w, r)
	rec, err := s.reco.RecommendAnother(r.Context(), sessionID)
	s.respondRecommendation(w, r, rec, domain.Preferences{}, err)
}

// respondRecommendation maps pipeline outcomes onto the response envelope.
// The three non-transport outcomes are deliberate statuses, not failures: a
// missing anchor preference, an empty result set, and a missing session each
// get their own message so the client can show the right thing in the card slot.
func (s *Server) respondRecommendation(w http.ResponseWriter, r *http.Request, rec domain.Recommendation, prefs domain.Preferences, err error) {
	wantHTML := r.URL.Query().Get("format") == "html"

	switch {
	case err == nil:
		response := recommendResponse{Status: "ok", Recommendation: &rec}
		if prefs != (domain.Preferences{}) {
			response.Prefs = &prefs
		}
		if wantHTML {
			html, renderErr := s.presenter.RenderCard(rec)
			if renderErr != nil {
				s.logger.Error("card render failed", slog.String("error", renderErr.Error()))
				writeError(w, http.StatusInternalServerError, "internal_error", "failed to render recommendation")
				return
			}
			response.HTML = string(html)
		}
		writeJSON(w, http.StatusOK, response)

	case errors.Is(err, reco.ErrNoPreferences):
		s.writeStatus(w, http.StatusBadRequest, wantHTML, "validation_error", "danger",
			"Please enter a movie, an actor or choose a genre.")

	case errors.Is(err, reco.ErrNoResults):
		s.writeStatus(w, http.StatusOK, wantHTML, "no_results", "warning",
			"No results found. Try different inputs.")

	case errors.Is(err, reco.ErrNoSession):
		s.writeStatus(w, http.StatusOK, wantHTML, "no_session", "warning",
			"No cached results yet. Submit the form first.")

	default:
		s.logger.Warn("recommendation failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		s.writeStatus(w, http.StatusBadGateway, wantHTML, "error", "danger",
			"Something went wrong.")
	}
}

func (s *Server) writeStatus(w http.ResponseWriter, status int, wantHTML bool, code, level, message string) {
	response := recommendResponse{Status: code, Message: message}
	if wantHTML {
		if html, err := s.presenter.RenderStatus(level, message); err == nil {
			response.HTML = string(html)
		}
	}
	writeJSON(w, status, response)
}

// sessionID returns the client's session id, minting one and setting the
// cookie when absent.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	page, err := s.presenter.Asset("index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "page template unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handlePartial serves the header/footer fragments the page injects at load
// time. A missing fragment is a hard error rather than a silent blank.
func (s *Server) handlePartial(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[len("/partials/"):]
	if name != "header.html" && name != "footer.html" {
		http.NotFound(w, r)
		return
	}
	fragment, err := s.presenter.Partial(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "partial unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(fragment)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/static/poster-fallback.svg" {
		http.NotFound(w, r)
		return
	}
	asset, err := s.presenter.Asset("poster-fallback.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(asset)
}

func decodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
