package reco

import (
	"context"
	"strings"
	"sync"
)

// genreResolver maps user-typed genre names to upstream genre ids. The
// taxonomy is fetched from the metadata API on first use and kept for the
// process lifetime; a failed fetch is retried on the next lookup. Unresolved
// names simply mean "no genre filter".
type genreResolver struct {
	meta MetadataClient

	mu     sync.Mutex
	byName map[string]int64
}

func newGenreResolver(meta MetadataClient) *genreResolver {
	return &genreResolver{meta: meta}
}

func (g *genreResolver) Resolve(ctx context.Context, name string) (int64, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.byName == nil {
		genres, err := g.meta.Genres(ctx)
		if err != nil {
			return 0, false
		}
		g.byName = genres
	}

	id, ok := g.byName[key]
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
