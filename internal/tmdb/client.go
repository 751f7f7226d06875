package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"moovstream/recoservice/internal/domain"
	"moovstream/recoservice/internal/metrics"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultLanguage = "en-US"
	redisCacheKey   = "moov:tmdb:"

	maxResponseBytes = 512 * 1024
)

// Client talks to the TMDB v3 API with a read-access bearer token.
// Responses for the typed endpoints are cached in Redis when a client is
// configured; the raw passthrough used by the relay is never cached here.
type Client struct {
	token    string
	baseURL  string
	http     *http.Client
	redis    *redis.Client
	cacheTTL time.Duration
}

type Config struct {
	ReadToken string
	BaseURL   string
	Client    *http.Client
	Redis     *redis.Client
	CacheTTL  time.Duration
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	return &Client{
		token:    strings.TrimSpace(cfg.ReadToken),
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		redis:    cfg.Redis,
		cacheTTL: cacheTTL,
	}
}

func (c *Client) Enabled() bool {
	return c.token != ""
}

type movieListResponse struct {
	Results []domain.Movie `json:"results"`
}

// SearchMovies runs a free-text title search.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]domain.Movie, error) {
	params := url.Values{
		"query":         {strings.TrimSpace(query)},
		"include_adult": {"false"},
		"language":      {defaultLanguage},
		"page":          {"1"},
	}
	var response movieListResponse
	cacheID := "search:" + strings.ToLower(strings.TrimSpace(query))
	if err := c.getJSON(ctx, "/search/movie", params, cacheID, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// Discover runs an attribute-filtered listing query.
func (c *Client) Discover(ctx context.Context, filter domain.DiscoverFilter) ([]domain.Movie, error) {
	params := url.Values{
		"include_adult": {"false"},
		"language":      {defaultLanguage},
		"page":          {"1"},
	}
	sortBy := strings.TrimSpace(filter.SortBy)
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params.Set("sort_by", sortBy)
	if filter.GenreID > 0 {
		params.Set("with_genres", strconv.FormatInt(filter.GenreID, 10))
	}
	if filter.CastID > 0 {
		params.Set("with_cast", strconv.FormatInt(filter.CastID, 10))
	}
	if filter.Year > 0 {
		params.Set("primary_release_year", strconv.Itoa(filter.Year))
	}
	if filter.MinRating > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(filter.MinRating, 'f', -1, 64))
	}
	if filter.Language != "" {
		params.Set("with_original_language", filter.Language)
	}
	if filter.RuntimeGTE > 0 {
		params.Set("with_runtime.gte", strconv.Itoa(filter.RuntimeGTE))
	}
	if filter.RuntimeLTE > 0 {
		params.Set("with_runtime.lte", strconv.Itoa(filter.RuntimeLTE))
	}

	var response movieListResponse
	cacheID := "discover:" + params.Encode()
	if err := c.getJSON(ctx, "/discover/movie", params, cacheID, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

type personSearchResponse struct {
	Results []struct {
		ID int64 `json:"id"`
	} `json:"results"`
}

// SearchPerson resolves a person name to an id, taking the first result only.
// A name with no results yields 0 and no error.
func (c *Client) SearchPerson(ctx context.Context, name string) (int64, error) {
	params := url.Values{
		"query":         {strings.TrimSpace(name)},
		"language":      {defaultLanguage},
		"page":          {"1"},
		"include_adult": {"false"},
	}
	var response personSearchResponse
	cacheID := "person:" + strings.ToLower(strings.TrimSpace(name))
	if err := c.getJSON(ctx, "/search/person", params, cacheID, &response); err != nil {
		return 0, err
	}
	if len(response.Results) == 0 {
		return 0, nil
	}
	return response.Results[0].ID, nil
}

// Credits fetches the cast list for one title.
func (c *Client) Credits(ctx context.Context, movieID int64) (domain.Credits, error) {
	params := url.Values{"language": {defaultLanguage}}
	var credits domain.Credits
	path := fmt.Sprintf("/movie/%d/credits", movieID)
	cacheID := "credits:" + strconv.FormatInt(movieID, 10)
	if err := c.getJSON(ctx, path, params, cacheID, &credits); err != nil {
		return domain.Credits{}, err
	}
	return credits, nil
}

type watchProvidersResponse struct {
	Results map[string]struct {
		Link     string `json:"link"`
		Flatrate []struct {
			ProviderName string `json:"provider_name"`
		} `json:"flatrate"`
		Rent []struct {
			ProviderName string `json:"provider_name"`
		} `json:"rent"`
		Buy []struct {
			ProviderName string `json:"provider_name"`
		} `json:"buy"`
	} `json:"results"`
}

// WatchProviders fetches streaming availability for one title in one region.
// Absent region data yields empty lists, not an error.
func (c *Client) WatchProviders(ctx context.Context, movieID int64, region string) (domain.ProviderInfo, error) {
	var response watchProvidersResponse
	path := fmt.Sprintf("/movie/%d/watch/providers", movieID)
	cacheID := "providers:" + strconv.FormatInt(movieID, 10)
	if err := c.getJSON(ctx, path, url.Values{}, cacheID, &response); err != nil {
		return domain.ProviderInfo{}, err
	}

	regional, ok := response.Results[strings.ToUpper(strings.TrimSpace(region))]
	if !ok {
		return domain.ProviderInfo{Flatrate: []string{}, Rent: []string{}, Buy: []string{}}, nil
	}
	info := domain.ProviderInfo{
		Flatrate: make([]string, 0, len(regional.Flatrate)),
		Rent:     make([]string, 0, len(regional.Rent)),
		Buy:      make([]string, 0, len(regional.Buy)),
		Link:     regional.Link,
	}
	for _, p := range regional.Flatrate {
		info.Flatrate = append(info.Flatrate, p.ProviderName)
	}
	for _, p := range regional.Rent {
		info.Rent = append(info.Rent, p.ProviderName)
	}
	for _, p := range regional.Buy {
		info.Buy = append(info.Buy, p.ProviderName)
	}
	return info, nil
}

type genreListResponse struct {
	Genres []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// Genres returns the upstream genre taxonomy as a lowercase name to id map.
func (c *Client) Genres(ctx context.Context) (map[string]int64, error) {
	params := url.Values{"language": {defaultLanguage}}
	var response genreListResponse
	if err := c.getJSON(ctx, "/genre/movie/list", params, "genres", &response); err != nil {
		return nil, err
	}
	genres := make(map[string]int64, len(response.Genres))
	for _, genre := range response.Genres {
		genres[strings.ToLower(strings.TrimSpace(genre.Name))] = genre.ID
	}
	return genres, nil
}

// Passthrough forwards an arbitrary API path with verbatim query parameters and
// returns the upstream status, content type and body unchanged. The relay
// handler owns all policy (method, path shape, CORS); this only injects auth.
func (c *Client) Passthrough(ctx context.Context, path string, params url.Values) (int, string, []byte, error) {
	start := time.Now()
	status, contentType, body, err := c.doPassthrough(ctx, path, params)
	observe("passthrough", err, start)
	return status, contentType, body, err
}

func (c *Client) doPassthrough(ctx context.Context, path string, params url.Values) (int, string, []byte, error) {
	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, "", nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json;charset=utf-8"
	}
	return resp.StatusCode, contentType, body, nil
}

// getJSON fetches one typed endpoint, going through the Redis cache when one is
// configured. Cache failures fall through to the live request.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, cacheID string, dest any) error {
	if c.redis != nil && cacheID != "" {
		data, err := c.redis.Get(ctx, redisCacheKey+cacheID).Bytes()
		if err == nil && json.Unmarshal(data, dest) == nil {
			metrics.TMDBCacheHitsTotal.Inc()
			return nil
		}
		metrics.TMDBCacheMissesTotal.Inc()
	}

	start := time.Now()
	body, err := c.fetch(ctx, path, params)
	observe(endpointLabel(path), err, start)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("tmdb decode %s: %w", path, err)
	}

	if c.redis != nil && cacheID != "" {
		_ = c.redis.Set(ctx, redisCacheKey+cacheID, body, c.cacheTTL).Err()
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tmdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

func endpointLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/search/movie"):
		return "search_movie"
	case strings.HasPrefix(path, "/search/person"):
		return "search_person"
	case strings.HasPrefix(path, "/discover/movie"):
		return "discover"
	case strings.HasSuffix(path, "/credits"):
		return "credits"
	case strings.HasSuffix(path, "/watch/providers"):
		return "watch_providers"
	case strings.HasPrefix(path, "/genre/"):
		return "genres"
	default:
		return "other"
	}
}

func observe(endpoint string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.TMDBRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	metrics.TMDBRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
