package domain

import "time"

type RuntimeBucket string

const (
	RuntimeAny    RuntimeBucket = ""
	RuntimeShort  RuntimeBucket = "short"
	RuntimeMedium RuntimeBucket = "medium"
	RuntimeLong   RuntimeBucket = "long"
)

// Preferences is the raw form input. Every field is optional free text except
// Runtime, which is one of the coarse buckets above.
type Preferences struct {
	FavoriteMovie    string `json:"favoriteMovie,omitempty"`
	FavoriteGenre    string `json:"favoriteGenre,omitempty"`
	FavoriteActor    string `json:"favoriteActor,omitempty"`
	StreamingService string `json:"streamingService,omitempty"`
	ReleaseYear      string `json:"releaseYear,omitempty"`
	MinRating        string `json:"minRating,omitempty"`
	Runtime          string `json:"runtime,omitempty"`
	Language         string `json:"language,omitempty"`
	SortBy           string `json:"sortBy,omitempty"`
}

// HasAnchor reports whether at least one of the three anchor fields is set.
// Without an anchor no upstream query can be constructed.
func (p Preferences) HasAnchor() bool {
	return trimmedNonEmpty(p.FavoriteMovie) || trimmedNonEmpty(p.FavoriteGenre) || trimmedNonEmpty(p.FavoriteActor)
}

func trimmedNonEmpty(value string) bool {
	for _, r := range value {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// RuntimeBounds maps the runtime bucket to inclusive minute bounds.
// A zero bound means "no bound on that side".
func (p Preferences) RuntimeBounds() (gte, lte int) {
	switch RuntimeBucket(p.Runtime) {
	case RuntimeShort:
		return 0, 90
	case RuntimeMedium:
		return 90, 120
	case RuntimeLong:
		return 120, 0
	default:
		return 0, 0
	}
}

// Movie is one candidate returned by a search or discovery query.
// Candidates are read-only once fetched.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
	Popularity  float64 `json:"popularity,omitempty"`
	VoteAverage float64 `json:"vote_average,omitempty"`
	PosterPath  string  `json:"poster_path,omitempty"`
	GenreIDs    []int64 `json:"genre_ids,omitempty"`
}

// Year returns the release year, or 0 when the release date is absent or malformed.
func (m Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	year := 0
	for _, c := range m.ReleaseDate[:4] {
		if c < '0' || c > '9' {
			return 0
		}
		year = year*10 + int(c-'0')
	}
	return year
}

func (m Movie) HasGenre(genreID int64) bool {
	for _, id := range m.GenreIDs {
		if id == genreID {
			return true
		}
	}
	return false
}

type CastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
}

// LeadPlaceholder is shown when a candidate has no billed cast.
const LeadPlaceholder = "—"

// Lead returns the cast member with the lowest billing order, ties broken by
// original list position.
func (c Credits) Lead() string {
	if len(c.Cast) == 0 {
		return LeadPlaceholder
	}
	lead := c.Cast[0]
	for _, member := range c.Cast[1:] {
		if member.Order < lead.Order {
			lead = member
		}
	}
	if lead.Name == "" {
		return LeadPlaceholder
	}
	return lead.Name
}

// ProviderInfo lists streaming availability for the fixed watch region.
type ProviderInfo struct {
	Flatrate []string `json:"flatrate"`
	Rent     []string `json:"rent"`
	Buy      []string `json:"buy"`
	Link     string   `json:"link,omitempty"`
}

type QueryKind string

const (
	QuerySearch   QueryKind = "search"
	QueryDiscover QueryKind = "discover"
)

// DiscoverFilter carries the attribute filters for a discovery query.
// Zero values mean "no filter".
type DiscoverFilter struct {
	GenreID    int64
	CastID     int64
	Year       int
	MinRating  float64
	Language   string
	RuntimeGTE int
	RuntimeLTE int
	SortBy     string
}

func (f DiscoverFilter) Empty() bool {
	return f.GenreID == 0 && f.CastID == 0 && f.Year == 0 && f.MinRating == 0 &&
		f.Language == "" && f.RuntimeGTE == 0 && f.RuntimeLTE == 0 && f.SortBy == ""
}

// Query is the single upstream query descriptor produced by the query builder.
type Query struct {
	Kind   QueryKind
	Title  string
	Filter DiscoverFilter
}

// Recommendation is the plain-data result of the selection pipeline; the
// presentation layer consumes it without touching any business logic.
type Recommendation struct {
	Movie     Movie        `json:"movie"`
	Lead      string       `json:"lead"`
	Providers ProviderInfo `json:"providers"`
	Region    string       `json:"region"`
}

// Session holds the most recent result set and preferences for one client,
// overwritten on every successful search (last write wins).
type Session struct {
	Results   []Movie     `json:"results"`
	Prefs     Preferences `json:"prefs"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
