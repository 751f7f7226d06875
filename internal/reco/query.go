package reco

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"moovstream/recoservice/internal/domain"
)

// queryPlan is the outcome of the query-building decision rules: exactly one
// upstream query, plus the free-text title to fall back to when a discovery
// query comes back empty.
type queryPlan struct {
	query         domain.Query
	fallbackTitle string
	genreID       int64
}

// discoverSortKeys are the sort orders forwarded to the discovery endpoint.
// Anything else falls back to the upstream default (popularity descending).
var discoverSortKeys = map[string]struct{}{
	"popularity.desc":           {},
	"popularity.asc":            {},
	"vote_average.desc":         {},
	"vote_average.asc":          {},
	"primary_release_date.desc": {},
	"primary_release_date.asc":  {},
	"revenue.desc":              {},
	"original_title.asc":        {},
	"original_title.desc":       {},
}

// buildQuery turns preferences into one query descriptor. Genre and actor
// resolution failures are non-fatal: the corresponding filter is dropped.
func (s *Service) buildQuery(ctx context.Context, prefs domain.Preferences) (queryPlan, error) {
	if !prefs.HasAnchor() {
		return queryPlan{}, ErrNoPreferences
	}

	plan := queryPlan{}
	filter := domain.DiscoverFilter{}

	if genre := strings.TrimSpace(prefs.FavoriteGenre); genre != "" {
		if id, ok := s.genres.Resolve(ctx, genre); ok {
			filter.GenreID = id
			plan.genreID = id
		}
	}

	if actor := strings.TrimSpace(prefs.FavoriteActor); actor != "" {
		personID, err := s.meta.SearchPerson(ctx, actor)
		if err != nil {
			s.logger.Warn("person lookup failed, continuing without actor filter",
				slog.String("actor", actor),
				slog.String("error", err.Error()),
			)
		} else if personID > 0 {
			filter.CastID = personID
		}
	}

	if year := parseYear(prefs.ReleaseYear); year > 0 {
		filter.Year = year
	}
	if rating := parseRating(prefs.MinRating); rating > 0 {
		filter.MinRating = rating
	}
	if code := languageCode(prefs.Language); code != "" {
		filter.Language = code
	}
	if sortBy := strings.ToLower(strings.TrimSpace(prefs.SortBy)); sortBy != "" {
		if _, ok := discoverSortKeys[sortBy]; ok {
			filter.SortBy = sortBy
		}
	}
	filter.RuntimeGTE, filter.RuntimeLTE = prefs.RuntimeBounds()

	title := searchTitle(prefs)

	if !filter.Empty() {
		plan.query = domain.Query{Kind: domain.QueryDiscover, Filter: filter}
		plan.fallbackTitle = strings.TrimSpace(prefs.FavoriteMovie)
		return plan, nil
	}

	if title == "" {
		return queryPlan{}, ErrNoPreferences
	}
	plan.query = domain.Query{Kind: domain.QuerySearch, Title: title}
	return plan, nil
}

// searchTitle picks the free-text query for a plain title search: the stated
// favorite movie, then "<genre> movie", then the raw actor text.
func searchTitle(prefs domain.Preferences) string {
	if title := strings.TrimSpace(prefs.FavoriteMovie); title != "" {
		return title
	}
	if genre := strings.TrimSpace(prefs.FavoriteGenre); genre != "" {
		return genre + " movie"
	}
	return strings.TrimSpace(prefs.FavoriteActor)
}

func parseYear(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1870 || value > 2100 {
		return 0
	}
	return value
}

func parseRating(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value <= 0 || value > 10 {
		return 0
	}
	return value
}

// languageCode canonicalizes the user's language preference into the ISO 639-1
// code the discovery endpoint expects. Unparseable input drops the filter.
func languageCode(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	tag, err := language.Parse(value)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}
