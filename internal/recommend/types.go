// Package recommend turns user preferences into AI movie recommendations
// matched against the movie catalog.
package recommend

import "github.com/thatonemovie/thatonemovie/internal/metadata/tmdb"

// Request holds user preferences. Every field is optional.
type Request struct {
	MovieTitle  string   `json:"movieTitle,omitempty" validate:"max=200"`
	Genres      []string `json:"genres,omitempty" validate:"max=20,dive,max=50"`
	Actors      []string `json:"actors,omitempty" validate:"max=20,dive,max=100"`
	Directors   []string `json:"directors,omitempty" validate:"max=20,dive,max=100"`
	Description string   `json:"description,omitempty" validate:"max=1000"`
	Mood        string   `json:"mood,omitempty" validate:"max=100"`
	Era         string   `json:"era,omitempty" validate:"max=100"`
}

// Recommendation is a single AI-suggested movie.
type Recommendation struct {
	Title  string `json:"title" yaml:"title"`
	Year   string `json:"year" yaml:"year"`
	Reason string `json:"reason" yaml:"reason"`
}

const (
	DefaultTitle  = "Unknown Title"
	DefaultYear   = "Unknown Year"
	DefaultReason = "Recommended by AI"
)

// EnrichedRecommendation is a recommendation with its catalog match, if any.
type EnrichedRecommendation struct {
	Recommendation
	TMDBMovie *tmdb.Movie `json:"tmdbMovie"`
}

// Source tells where a recommendation list came from.
type Source string

const (
	SourceParsed            Source = "parsed"
	SourceFallbackParse     Source = "fallback_parse"
	SourceFallbackTransport Source = "fallback_transport"
)

// Result is the outcome of parsing completion text.
type Result struct {
	Source          Source
	Recommendations []Recommendation
}

// IsFallback reports whether the list is a canned fallback.
func (r Result) IsFallback() bool {
	return r.Source != SourceParsed
}

// Response is the pipeline output returned to clients.
type Response struct {
	Recommendations []EnrichedRecommendation `json:"recommendations"`
	Source          Source                   `json:"source"`
}
