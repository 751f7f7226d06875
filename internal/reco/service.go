package reco

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"moovstream/recoservice/internal/domain"
	"moovstream/recoservice/internal/metrics"
)

var (
	ErrNoPreferences = errors.New("enter a movie, actor or genre")
	ErrNoResults     = errors.New("no results found")
	ErrNoSession     = errors.New("no cached results yet")
)

// MetadataClient is the slice of the TMDB client the pipeline needs.
type MetadataClient interface {
	SearchMovies(ctx context.Context, query string) ([]domain.Movie, error)
	SearchPerson(ctx context.Context, name string) (int64, error)
	Discover(ctx context.Context, filter domain.DiscoverFilter) ([]domain.Movie, error)
	Credits(ctx context.Context, movieID int64) (domain.Credits, error)
	WatchProviders(ctx context.Context, movieID int64, region string) (domain.ProviderInfo, error)
	Genres(ctx context.Context) (map[string]int64, error)
}

// Service runs the candidate-selection pipeline and owns the per-session
// result cache that serves "recommend another".
type Service struct {
	meta     MetadataClient
	sessions SessionStore
	genres   *genreResolver
	region   string
	logger   *slog.Logger
	randIntN func(n int) int
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSessions(store SessionStore) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.sessions = store
		}
	}
}

func WithRegion(region string) ServiceOption {
	return func(s *Service) {
		region = strings.ToUpper(strings.TrimSpace(region))
		if region != "" {
			s.region = region
		}
	}
}

// WithRandom overrides the random source used by RecommendAnother; tests use
// this to make the uniform pick deterministic.
func WithRandom(intN func(n int) int) ServiceOption {
	return func(s *Service) {
		if intN != nil {
			s.randIntN = intN
		}
	}
}

func NewService(meta MetadataClient, opts ...ServiceOption) *Service {
	svc := &Service{
		meta:     meta,
		sessions: NewMemoryStore(2 * time.Hour),
		region:   "CA",
		logger:   slog.Default(),
		randIntN: rand.Intn,
	}
	svc.genres = newGenreResolver(meta)
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Recommend runs the full pipeline for one form submission: build one upstream
// query, rank the candidates, fetch details for the pick, reconcile the
// streaming-service preference, and cache the result set for the session.
func (s *Service) Recommend(ctx context.Context, sessionID string, prefs domain.Preferences) (domain.Recommendation, error) {
	plan, err := s.buildQuery(ctx, prefs)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("validation").Inc()
		return domain.Recommendation{}, err
	}

	results, err := s.runQuery(ctx, plan)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return domain.Recommendation{}, err
	}

	// The session is overwritten on every search, even an empty one; a later
	// "recommend another" against an empty set reports the missing cache.
	s.sessions.Put(ctx, sessionID, domain.Session{
		Results:   results,
		Prefs:     prefs,
		UpdatedAt: time.Now(),
	})

	ranked := rankMovies(results, prefs, plan.genreID)
	if len(ranked) == 0 {
		metrics.RecommendationsTotal.WithLabelValues("no_results").Inc()
		return domain.Recommendation{}, ErrNoResults
	}
	chosen := ranked[0]

	credits, providers, err := s.fetchDetails(ctx, chosen.ID)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return domain.Recommendation{}, err
	}

	final, finalProviders, finalCredits, scanned, err := s.matchStreamingService(ctx, ranked, chosen, providers, prefs.StreamingService)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return domain.Recommendation{}, err
	}
	metrics.ProviderScanDepth.Observe(float64(scanned))
	if finalCredits != nil {
		credits = *finalCredits
	}

	metrics.RecommendationsTotal.WithLabelValues("ok").Inc()
	return domain.Recommendation{
		Movie:     final,
		Lead:      credits.Lead(),
		Providers: finalProviders,
		Region:    s.region,
	}, nil
}

// RecommendAnother serves the "pick another" action from the cached session:
// a uniformly random candidate from the last result set, with fresh details,
// and no re-run of the query or provider-matching logic.
func (s *Service) RecommendAnother(ctx context.Context, sessionID string) (domain.Recommendation, error) {
	session, ok := s.sessions.Get(ctx, sessionID)
	if !ok || len(session.Results) == 0 {
		metrics.RecommendationsTotal.WithLabelValues("no_session").Inc()
		return domain.Recommendation{}, ErrNoSession
	}

	pick := session.Results[s.randIntN(len(session.Results))]
	credits, providers, err := s.fetchDetails(ctx, pick.ID)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return domain.Recommendation{}, err
	}

	metrics.RecommendationsTotal.WithLabelValues("ok").Inc()
	return domain.Recommendation{
		Movie:     pick,
		Lead:      credits.Lead(),
		Providers: providers,
		Region:    s.region,
	}, nil
}

func (s *Service) runQuery(ctx context.Context, plan queryPlan) ([]domain.Movie, error) {
	switch plan.query.Kind {
	case domain.QueryDiscover:
		results, err := s.meta.Discover(ctx, plan.query.Filter)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 && plan.fallbackTitle != "" {
			s.logger.Debug("discovery returned no candidates, falling back to title search",
				slog.String("title", plan.fallbackTitle),
			)
			return s.meta.SearchMovies(ctx, plan.fallbackTitle)
		}
		return results, nil
	default:
		return s.meta.SearchMovies(ctx, plan.query.Title)
	}
}

// fetchDetails fans out the two detail requests and joins before returning;
// both must succeed for the candidate to be rendered.
func (s *Service) fetchDetails(ctx context.Context, movieID int64) (domain.Credits, domain.ProviderInfo, error) {
	var (
		credits   domain.Credits
		providers domain.ProviderInfo
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		credits, err = s.meta.Credits(groupCtx, movieID)
		return err
	})
	group.Go(func() error {
		var err error
		providers, err = s.meta.WatchProviders(groupCtx, movieID, s.region)
		return err
	})
	if err := group.Wait(); err != nil {
		return domain.Credits{}, domain.ProviderInfo{}, err
	}
	return credits, providers, nil
}
