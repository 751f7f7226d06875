package reco

import (
	"math"
	"sort"
	"strings"

	"moovstream/recoservice/internal/domain"
)

const (
	genreMatchBonus      = 2.0
	favoriteTitlePenalty = 3.0
	popularityCap        = 2.0
	popularityDivisor    = 50.0
)

// Normalize lowercases a string and collapses runs of whitespace.
// Normalize(Normalize(s)) == Normalize(s) for all inputs.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// scoreMovie computes the heuristic score for one candidate. genreID is the
// resolved genre identifier, or 0 when the user's genre text did not resolve.
func scoreMovie(movie domain.Movie, prefs domain.Preferences, genreID int64) float64 {
	score := 0.0

	if genreID > 0 && movie.HasGenre(genreID) {
		score += genreMatchBonus
	}

	// Never recommend the movie the user told us is already their favorite.
	if favorite := Normalize(prefs.FavoriteMovie); favorite != "" && Normalize(movie.Title) == favorite {
		score -= favoriteTitlePenalty
	}

	score += math.Min(popularityCap, movie.Popularity/popularityDivisor)
	return score
}

// rankMovies returns a copy of the candidates sorted by score descending.
// The sort is stable, so equal-score candidates keep their input order.
func rankMovies(movies []domain.Movie, prefs domain.Preferences, genreID int64) []domain.Movie {
	if len(movies) == 0 {
		return nil
	}
	ranked := make([]domain.Movie, len(movies))
	copy(ranked, movies)

	scores := make([]float64, len(ranked))
	for i, movie := range ranked {
		scores[i] = scoreMovie(movie, prefs, genreID)
	}
	indexes := make([]int, len(ranked))
	for i := range indexes {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(a, b int) bool {
		return scores[indexes[a]] > scores[indexes[b]]
	})

	out := make([]domain.Movie, len(ranked))
	for i, idx := range indexes {
		out[i] = ranked[idx]
	}
	return out
}
