package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"moovstream/recoservice/internal/domain"
)

//go:embed assets
var assetsFS embed.FS

const (
	posterBaseURL      = "https://image.tmdb.org/t/p/w500"
	fallbackPosterPath = "/static/poster-fallback.svg"
)

// Presenter renders the recommendation card and status messages from plain
// pipeline data. It holds no business logic: everything it shows is already
// decided by the time it is called.
type Presenter struct {
	templates *template.Template
}

func NewPresenter() (*Presenter, error) {
	templates, err := template.ParseFS(assetsFS, "assets/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Presenter{templates: templates}, nil
}

type cardView struct {
	Title         string
	PosterURL     string
	Year          string
	Overview      string
	Lead          string
	Region        string
	ProvidersLine string
	Link          string
}

// RenderCard produces the recommendation card fragment.
func (p *Presenter) RenderCard(rec domain.Recommendation) ([]byte, error) {
	view := cardView{
		Title:     rec.Movie.Title,
		PosterURL: posterURL(rec.Movie.PosterPath),
		Year:      yearLabel(rec.Movie),
		Overview:  rec.Movie.Overview,
		Lead:      rec.Lead,
		Region:    rec.Region,
		Link:      rec.Providers.Link,
	}
	if len(rec.Providers.Flatrate) > 0 {
		view.ProvidersLine = joinProviders(rec.Providers.Flatrate)
	} else {
		view.ProvidersLine = fmt.Sprintf("No streaming providers found (%s)", rec.Region)
	}
	return p.render("card.html", view)
}

type statusView struct {
	Level   string
	Message string
}

// RenderStatus produces a status fragment that fully replaces the card slot.
// Level is one of info, warning, danger.
func (p *Presenter) RenderStatus(level, message string) ([]byte, error) {
	return p.render("status.html", statusView{Level: level, Message: message})
}

// Partial returns an embedded page fragment (header.html, footer.html).
func (p *Presenter) Partial(name string) ([]byte, error) {
	return assetsFS.ReadFile("assets/partials/" + name)
}

// Asset returns an embedded static file such as the index page or the
// fallback poster image.
func (p *Presenter) Asset(name string) ([]byte, error) {
	return assetsFS.ReadFile("assets/" + name)
}

func (p *Presenter) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func posterURL(posterPath string) string {
	if posterPath == "" {
		return fallbackPosterPath
	}
	return posterBaseURL + posterPath
}

func yearLabel(movie domain.Movie) string {
	if year := movie.Year(); year > 0 {
		return fmt.Sprintf("%d", year)
	}
	return "—"
}

func joinProviders(names []string) string {
	line := ""
	for i, name := range names {
		if i > 0 {
			line += ", "
		}
		line += name
	}
	return line
}
