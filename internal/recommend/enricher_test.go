package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatonemovie/thatonemovie/internal/metadata/tmdb"
)

// stubSearcher answers searches from a title->results map. Titles listed
// in fail return an error.
type stubSearcher struct {
	results map[string][]tmdb.Movie
	fail    map[string]bool
	delay   map[string]time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	mu          sync.Mutex
	queries     []string
}

func (s *stubSearcher) SearchMovies(ctx context.Context, query string) ([]tmdb.Movie, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if d := s.delay[query]; d > 0 {
		time.Sleep(d)
	}
	if s.fail[query] {
		return nil, fmt.Errorf("%w: %w", tmdb.ErrFetchFailed, errors.New("connection reset"))
	}
	return s.results[query], nil
}

func TestEnricher_Match(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]tmdb.Movie{
		"Inception": {{ID: 27205, Title: "Inception"}},
	}}
	e := NewEnricher(searcher, 5, zerolog.Nop())

	got := e.Enrich(context.Background(), []Recommendation{{Title: "Inception", Year: "2010", Reason: "r"}})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].TMDBMovie)
	assert.Equal(t, 27205, got[0].TMDBMovie.ID)
	assert.Equal(t, Recommendation{Title: "Inception", Year: "2010", Reason: "r"}, got[0].Recommendation)
}

func TestEnricher_SearchErrorYieldsNil(t *testing.T) {
	searcher := &stubSearcher{fail: map[string]bool{"Inception": true}}
	e := NewEnricher(searcher, 5, zerolog.Nop())

	got := e.Enrich(context.Background(), []Recommendation{{Title: "Inception", Year: "2010", Reason: "r"}})

	require.Len(t, got, 1)
	assert.Nil(t, got[0].TMDBMovie)
}

func TestEnricher_PreservesLengthAndOrder(t *testing.T) {
	searcher := &stubSearcher{
		results: map[string][]tmdb.Movie{
			"A": {{ID: 1, Title: "A"}},
			"C": {{ID: 3, Title: "C"}},
			"E": {{ID: 5, Title: "E"}},
		},
		fail: map[string]bool{"B": true},
		// Earlier entries finish last.
		delay: map[string]time.Duration{"A": 30 * time.Millisecond, "B": 20 * time.Millisecond},
	}
	e := NewEnricher(searcher, 5, zerolog.Nop())

	recs := []Recommendation{{Title: "A"}, {Title: "B"}, {Title: "C"}, {Title: "D"}, {Title: "E"}}
	got := e.Enrich(context.Background(), recs)

	require.Len(t, got, len(recs))
	for i, r := range got {
		assert.Equal(t, recs[i], r.Recommendation)
	}
	assert.Equal(t, 1, got[0].TMDBMovie.ID)
	assert.Nil(t, got[1].TMDBMovie)
	assert.Equal(t, 3, got[2].TMDBMovie.ID)
	assert.Nil(t, got[3].TMDBMovie)
	assert.Equal(t, 5, got[4].TMDBMovie.ID)
}

func TestEnricher_Empty(t *testing.T) {
	e := NewEnricher(&stubSearcher{}, 5, zerolog.Nop())

	got := e.Enrich(context.Background(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEnricher_BoundsConcurrency(t *testing.T) {
	delay := map[string]time.Duration{}
	recs := make([]Recommendation, 8)
	for i := range recs {
		title := fmt.Sprintf("T%d", i)
		recs[i] = Recommendation{Title: title}
		delay[title] = 20 * time.Millisecond
	}
	searcher := &stubSearcher{delay: delay}

	got := NewEnricher(searcher, 2, zerolog.Nop()).Enrich(context.Background(), recs)

	assert.Len(t, got, 8)
	assert.LessOrEqual(t, searcher.maxInFlight.Load(), int32(2))
	assert.Len(t, searcher.queries, 8)
}

func TestFindMatch(t *testing.T) {
	results := []tmdb.Movie{
		{ID: 1, Title: "The Lord of the Rings: The Fellowship of the Ring"},
		{ID: 2, Title: "The Lord of the Rings"},
	}

	tests := []struct {
		name  string
		title string
		want  int
	}{
		{"containment wins by scan order", "the lord of the rings", 1},
		{"case-insensitive exact", "THE LORD OF THE RINGS: THE FELLOWSHIP OF THE RING", 1},
		{"no match", "Jurassic Park", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMatch(tt.title, results)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}
