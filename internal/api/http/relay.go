package apihttp

import (
	"log/slog"
	"net/http"
	"strings"
)

// handleRelay forwards a metadata-API path plus verbatim query parameters to
// the upstream, injecting the server-side bearer credential. The upstream
// status and body come back unchanged. Browsers talk to this instead of the
// upstream so the credential never leaves the server.
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	s.setRelayCORS(w, r)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" || !strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		http.Error(w, "Missing or invalid path", http.StatusBadRequest)
		return
	}

	if s.relay == nil || !s.relay.Enabled() {
		http.Error(w, "Server missing TMDB read token", http.StatusInternalServerError)
		return
	}

	// Pass through every query parameter except path itself.
	params := r.URL.Query()
	params.Del("path")

	status, contentType, body, err := s.relay.Passthrough(r.Context(), path, params)
	if err != nil {
		s.logger.Warn("relay upstream failure",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Proxy error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) setRelayCORS(w http.ResponseWriter, r *http.Request) {
	allowed := s.allowedOrigin
	if allowed == "" {
		allowed = "*"
	}
	value := allowed
	if allowed != "*" {
		if origin := r.Header.Get("Origin"); origin == allowed {
			value = origin
		} else {
			value = "null"
		}
	}
	w.Header().Set("Access-Control-Allow-Origin", value)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
	w.Header().Set("Vary", "Origin")
}
