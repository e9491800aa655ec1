package recommend

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/thatonemovie/thatonemovie/internal/metadata/tmdb"
	"github.com/thatonemovie/thatonemovie/internal/metrics"
)

const defaultEnrichWorkers = 5

// Searcher is the catalog title search used for matching.
type Searcher interface {
	SearchMovies(ctx context.Context, query string) ([]tmdb.Movie, error)
}

// Enricher attaches catalog matches to recommendations.
type Enricher struct {
	searcher Searcher
	workers  int
	logger   zerolog.Logger
}

// NewEnricher creates an enricher running at most workers lookups at once.
func NewEnricher(searcher Searcher, workers int, logger zerolog.Logger) *Enricher {
	if workers <= 0 {
		workers = defaultEnrichWorkers
	}
	return &Enricher{
		searcher: searcher,
		workers:  workers,
		logger:   logger.With().Str("component", "enricher").Logger(),
	}
}

// Enrich looks up every recommendation concurrently. The output has the same
// length and order as recs; a failed lookup leaves that entry unmatched.
func (e *Enricher) Enrich(ctx context.Context, recs []Recommendation) []EnrichedRecommendation {
	out := make([]EnrichedRecommendation, len(recs))
	if len(recs) == 0 {
		return out
	}

	p := pool.New().WithMaxGoroutines(e.workers)
	for i, rec := range recs {
		p.Go(func() {
			out[i] = EnrichedRecommendation{
				Recommendation: rec,
				TMDBMovie:      e.lookup(ctx, rec.Title),
			}
		})
	}
	p.Wait()

	return out
}

func (e *Enricher) lookup(ctx context.Context, title string) *tmdb.Movie {
	results, err := e.searcher.SearchMovies(ctx, title)
	if err != nil {
		metrics.EnrichmentLookups.WithLabelValues("error").Inc()
		e.logger.Warn().Err(err).Str("title", title).Msg("Catalog search failed during enrichment")
		return nil
	}

	match := FindMatch(title, results)
	if match == nil {
		metrics.EnrichmentLookups.WithLabelValues("unmatched").Inc()
		return nil
	}
	metrics.EnrichmentLookups.WithLabelValues("matched").Inc()
	return match
}

// FindMatch returns the first result whose title equals or contains title,
// ignoring case.
func FindMatch(title string, results []tmdb.Movie) *tmdb.Movie {
	want := strings.ToLower(title)
	for i := range results {
		got := strings.ToLower(results[i].Title)
		if got == want || strings.Contains(got, want) {
			m := results[i]
			return &m
		}
	}
	return nil
}
