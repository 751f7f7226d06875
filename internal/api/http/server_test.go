package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"moovstream/recoservice/internal/domain"
	"moovstream/recoservice/internal/reco"
	"moovstream/recoservice/internal/web"
)

type fakeRecoService struct {
	rec domain.Recommendation
	err error

	lastSessionID string
	lastPrefs     domain.Preferences
	recommendHits int
	anotherHits   int
}

func (f *fakeRecoService) Recommend(_ context.Context, sessionID string, prefs domain.Preferences) (domain.Recommendation, error) {
	f.recommendHits++
	f.lastSessionID = sessionID
	f.lastPrefs = prefs
	return f.rec, f.err
}

func (f *fakeRecoService) RecommendAnother(_ context.Context, sessionID string) (domain.Recommendation, error) {
	f.anotherHits++
	f.lastSessionID = sessionID
	return f.rec, f.err
}

type fakeRelay struct {
	enabled     bool
	status      int
	contentType string
	body        []byte
	err         error

	lastPath   string
	lastParams url.Values
}

func (f *fakeRelay) Enabled() bool { return f.enabled }

func (f *fakeRelay) Passthrough(_ context.Context, path string, params url.Values) (int, string, []byte, error) {
	f.lastPath = path
	f.lastParams = params
	return f.status, f.contentType, f.body, f.err
}

func newTestServer(t *testing.T, service RecommendService, options ...ServerOption) http.Handler {
	t.Helper()
	presenter, err := web.NewPresenter()
	if err != nil {
		t.Fatalf("presenter: %v", err)
	}
	return NewServer(service, presenter, options...).Handler()
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) recommendResponse {
	t.Helper()
	var response recommendResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return response
}

func TestRecommendEndpoint(t *testing.T) {
	service := &fakeRecoService{
		rec: domain.Recommendation{
			Movie:  domain.Movie{ID: 603, Title: "The Matrix"},
			Lead:   "Keanu Reeves",
			Region: "CA",
		},
	}
	handler := newTestServer(t, service)

	request := httptest.NewRequest(http.MethodPost, "/api/recommend",
		strings.NewReader(`{"favoriteMovie":"The Matrix","streamingService":"Netflix"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	response := decodeResponse(t, rr)
	if response.Status != "ok" || response.Recommendation == nil || response.Recommendation.Movie.ID != 603 {
		t.Fatalf("unexpected response %+v", response)
	}
	if response.Prefs == nil || response.Prefs.FavoriteMovie != "The Matrix" {
		t.Fatalf("prefs not echoed: %+v", response.Prefs)
	}
	if service.lastPrefs.StreamingService != "Netflix" {
		t.Fatalf("prefs not forwarded: %+v", service.lastPrefs)
	}

	// First contact mints a session cookie.
	cookies := rr.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatalf("missing session cookie in %v", cookies)
	}
	if sessionCookie.Value != service.lastSessionID {
		t.Fatal("cookie and service session id differ")
	}
}

func TestRecommendEndpointReusesSessionCookie(t *testing.T) {
	service := &fakeRecoService{}
	handler := newTestServer(t, service)

	request := httptest.NewRequest(http.MethodPost, "/api/recommend", strings.NewReader(`{"favoriteMovie":"Heat"}`))
	request.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "existing-session"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)

	if service.lastSessionID != "existing-session" {
		t.Fatalf("session id %q, want reuse", service.lastSessionID)
	}
}

func TestRecommendEndpointHTMLFormat(t *testing.T) {
	service := &fakeRecoService{
		rec: domain.Recommendation{
			Movie:  domain.Movie{Title: "The Matrix"},
			Lead:   "Keanu Reeves",
			Region: "CA",
		},
	}
	handler := newTestServer(t, service)

	request := httptest.NewRequest(http.MethodPost, "/api/recommend?format=html",
		strings.NewReader(`{"favoriteMovie":"The Matrix"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)

	response := decodeResponse(t, rr)
	if !strings.Contains(response.HTML, "The Matrix") || !strings.Contains(response.HTML, "card") {
		t.Fatalf("expected rendered card, got %q", response.HTML)
	}
}

func TestRecommendEndpointOutcomeMapping(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantCode    int
		wantStatus  string
		wantMessage string
	}{
		{
			name:        "missing preferences",
			err:         reco.ErrNoPreferences,
			wantCode:    http.StatusBadRequest,
			wantStatus:  "validation_error",
			wantMessage: "Please enter a movie, an actor or choose a genre.",
		},
		{
			name:        "no results",
			err:         reco.ErrNoResults,
			wantCode:    http.StatusOK,
			wantStatus:  "no_results",
			wantMessage: "No results found. Try different inputs.",
		},
		{
			name:        "upstream failure",
			err:         errors.New("tmdb HTTP 500"),
			wantCode:    http.StatusBadGateway,
			wantStatus:  "error",
			wantMessage: "Something went wrong.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestServer(t, &fakeRecoService{err: tc.err})

			request := httptest.NewRequest(http.MethodPost, "/api/recommend", strings.NewReader(`{"favoriteMovie":"x"}`))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, request)

			if rr.Code != tc.wantCode {
				t.Fatalf("status %d, want %d", rr.Code, tc.wantCode)
			}
			response := decodeResponse(t, rr)
			if response.Status != tc.wantStatus || response.Message != tc.wantMessage {
				t.Fatalf("got %q/%q, want %q/%q", response.Status, response.Message, tc.wantStatus, tc.wantMessage)
			}
		})
	}
}

func TestRecommendAnotherEndpoint(t *testing.T) {
	service := &fakeRecoService{
		rec: domain.Recommendation{Movie: domain.Movie{ID: 604, Title: "The Matrix Reloaded"}},
	}
	handler := newTestServer(t, service)

	request := httptest.NewRequest(http.MethodPost, "/api/recommend/another", nil)
	request.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "s1"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	response := decodeResponse(t, rr)
	if response.Recommendation == nil || response.Recommendation.Movie.ID != 604 {
		t.Fatalf("unexpected response %+v", response)
	}
	if service.anotherHits != 1 || service.recommendHits != 0 {
		t.Fatalf("wrong service calls: another=%d recommend=%d", service.anotherHits, service.recommendHits)
	}
}

func TestRecommendAnotherWithoutCache(t *testing.T) {
	handler := newTestServer(t, &fakeRecoService{err: reco.ErrNoSession})

	request := httptest.NewRequest(http.MethodPost, "/api/recommend/another?format=html", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	response := decodeResponse(t, rr)
	if response.Status != "no_session" {
		t.Fatalf("status %q", response.Status)
	}
	if response.Message != "No cached results yet. Submit the form first." {
		t.Fatalf("message %q", response.Message)
	}
	if !strings.Contains(response.HTML, "alert-warning") {
		t.Fatalf("expected warning fragment, got %q", response.HTML)
	}
}

func TestRecommendEndpointRejectsBadJSON(t *testing.T) {
	handler := newTestServer(t, &fakeRecoService{})

	request := httptest.NewRequest(http.MethodPost, "/api/recommend", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rr.Code)
	}
}

func TestRecommendEndpointMethodNotAllowed(t *testing.T) {
	handler := newTestServer(t, &fakeRecoService{})

	for _, path := range []string{"/api/recommend", "/api/recommend/another"} {
		request := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("GET %s: status %d, want 405", path, rr.Code)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t, &fakeRecoService{})

	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestIndexAndStaticRoutes(t *testing.T) {
	handler := newTestServer(t, &fakeRecoService{})

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "favorite-movie") {
		t.Fatalf("index: status %d", rr.Code)
	}

	request = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, request)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path: status %d, want 404", rr.Code)
	}

	request = httptest.NewRequest(http.MethodGet, "/static/poster-fallback.svg", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, request)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("static: status %d content-type %q", rr.Code, rr.Header().Get("Content-Type"))
	}
}

func TestPartialRoutes(t *testing.T) {
	handler := newTestServer(t, &fakeRecoService{})

	for _, name := range []string{"header.html", "footer.html"} {
		request := httptest.NewRequest(http.MethodGet, "/partials/"+name, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, request)
		if rr.Code != http.StatusOK || rr.Body.Len() == 0 {
			t.Fatalf("partial %s: status %d", name, rr.Code)
		}
	}

	request := httptest.NewRequest(http.MethodGet, "/partials/secret.html", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, request)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown partial: status %d, want 404", rr.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := newTestServer(t, &fakeRecoService{}, WithRateLimit(1, 1))

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rr.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, second)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", rr.Code)
	}

	// Health stays reachable under limit pressure.
	health := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, health)
	if rr.Code != http.StatusOK {
		t.Fatalf("health under limit: status %d", rr.Code)
	}
}

func TestNormalizeRoute(t *testing.T) {
	cases := map[string]string{
		"/":                      "/",
		"/health":                "/health",
		"/api/tmdb":              "/api/tmdb",
		"/api/recommend":         "/api/recommend",
		"/api/recommend/":        "/api/recommend",
		"/api/recommend/another": "/api/recommend/another",
		"/partials/header.html":  "/partials",
		"/static/x.svg":          "/static",
		"/favicon.ico":           "/other",
	}
	for path, want := range cases {
		if got := normalizeRoute(path); got != want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", path, got, want)
		}
	}
}
