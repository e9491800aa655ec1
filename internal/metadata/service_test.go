package metadata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatonemovie/thatonemovie/internal/metadata/tmdb"
)

// fakeClient is an in-memory TMDBClient. A non-nil err fails every call.
type fakeClient struct {
	mu        sync.Mutex
	err       error
	movies    map[int]*tmdb.Movie
	popular   []tmdb.Movie
	trending  []tmdb.Movie
	genres    []tmdb.Genre
	byGenre   map[int][]tmdb.Movie
	recs      map[int][]tmdb.Movie
	testErr   error
	genreHits []int
}

func (f *fakeClient) Name() string { return "tmdb" }
func (f *fakeClient) IsConfigured() bool { return true }
func (f *fakeClient) Test(context.Context) error { return f.testErr }

func (f *fakeClient) SearchMovies(_ context.Context, query string) ([]tmdb.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []tmdb.Movie
	for _, m := range f.popular {
		if m.Title == query {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeClient) GetMovie(_ context.Context, id int) (*tmdb.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.movies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %w", tmdb.ErrFetchFailed, tmdb.ErrMovieNotFound)
	}
	return m, nil
}

func (f *fakeClient) GetRecommendations(_ context.Context, id int) ([]tmdb.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recs[id], nil
}

func (f *fakeClient) Popular(context.Context) ([]tmdb.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.popular, nil
}

func (f *fakeClient) Trending(context.Context, tmdb.TimeWindow) ([]tmdb.Movie, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.trending, nil
}

func (f *fakeClient) Genres(context.Context) ([]tmdb.Genre, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.genres, nil
}

func (f *fakeClient) DiscoverByGenre(_ context.Context, genreID int) ([]tmdb.Movie, error) {
	f.mu.Lock()
	f.genreHits = append(f.genreHits, genreID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.byGenre[genreID], nil
}

func (f *fakeClient) ImageURL(path, size string) string { return path }

type recordingHealth struct {
	registered []string
	errors     map[string]string
	cleared    []string
}

func (r *recordingHealth) RegisterItemStr(category, id, name string) {
	r.registered = append(r.registered, category+"/"+id)
}

func (r *recordingHealth) SetErrorStr(category, id, message string) {
	if r.errors == nil {
		r.errors = map[string]string{}
	}
	r.errors[category+"/"+id] = message
}

func (r *recordingHealth) ClearStatusStr(category, id string) {
	r.cleared = append(r.cleared, category+"/"+id)
}

func TestService_ListsReturnEmptyOnFailure(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("%w: %w", tmdb.ErrFetchFailed, tmdb.ErrRateLimited)}
	svc := NewServiceWithClient(client, zerolog.Nop())
	ctx := context.Background()

	for name, got := range map[string][]tmdb.Movie{
		"popular":         svc.Popular(ctx),
		"trending":        svc.Trending(ctx, tmdb.TimeWindowDay),
		"search":          svc.Search(ctx, "x"),
		"genre":           svc.ByGenre(ctx, 28),
		"recommendations": svc.Recommendations(ctx, 1),
	} {
		assert.NotNil(t, got, name)
		assert.Empty(t, got, name)
	}
	assert.NotNil(t, svc.Genres(ctx))
	assert.Empty(t, svc.Genres(ctx))
}

func TestService_GetMovie(t *testing.T) {
	client := &fakeClient{movies: map[int]*tmdb.Movie{603: {ID: 603, Title: "The Matrix"}}}
	svc := NewServiceWithClient(client, zerolog.Nop())

	movie, err := svc.GetMovie(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", movie.Title)

	_, err = svc.GetMovie(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	client.err = errors.New("boom")
	_, err = svc.GetMovie(context.Background(), 603)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestService_MovieWithRecommendations(t *testing.T) {
	client := &fakeClient{
		movies: map[int]*tmdb.Movie{550: {ID: 550, Title: "Fight Club"}},
		recs:   map[int][]tmdb.Movie{550: {{ID: 680, Title: "Pulp Fiction"}}},
	}
	svc := NewServiceWithClient(client, zerolog.Nop())

	got := svc.MovieWithRecommendations(context.Background(), 550)
	require.NotNil(t, got.Movie)
	assert.Equal(t, "Fight Club", got.Movie.Title)
	assert.Len(t, got.Recommendations, 1)

	missing := svc.MovieWithRecommendations(context.Background(), 1)
	assert.Nil(t, missing.Movie)
	assert.NotNil(t, missing.Recommendations)
	assert.Empty(t, missing.Recommendations)
}

func TestService_Home(t *testing.T) {
	client := &fakeClient{
		popular:  []tmdb.Movie{{ID: 1}, {ID: 2}},
		trending: []tmdb.Movie{{ID: 3}},
	}
	feed := NewServiceWithClient(client, zerolog.Nop()).Home(context.Background())
	assert.Len(t, feed.Popular, 2)
	assert.Len(t, feed.Trending, 1)
}

func TestService_DiscoverUsesFirstThreeGenres(t *testing.T) {
	client := &fakeClient{
		popular:  []tmdb.Movie{{ID: 1}},
		trending: []tmdb.Movie{{ID: 2}},
		genres: []tmdb.Genre{
			{ID: 28, Name: "Action"}, {ID: 12, Name: "Adventure"},
			{ID: 16, Name: "Animation"}, {ID: 35, Name: "Comedy"},
		},
		byGenre: map[int][]tmdb.Movie{28: {{ID: 10}}, 12: {{ID: 11}}, 16: {{ID: 12}}},
	}

	feed := NewServiceWithClient(client, zerolog.Nop()).Discover(context.Background())

	require.Len(t, feed.Genres, 3)
	assert.Equal(t, "Action", feed.Genres[0].Genre.Name)
	assert.Equal(t, "Animation", feed.Genres[2].Genre.Name)
	assert.Equal(t, 12, feed.Genres[2].Movies[0].ID)
	assert.ElementsMatch(t, []int{28, 12, 16}, client.genreHits)
	assert.Len(t, feed.Trending, 1)
	assert.Len(t, feed.Popular, 1)
}

func TestService_CheckHealth(t *testing.T) {
	client := &fakeClient{testErr: errors.New("invalid API key")}
	hs := &recordingHealth{}
	svc := NewServiceWithClient(client, zerolog.Nop())
	svc.SetHealthService(hs)

	assert.Equal(t, []string{"metadata/tmdb"}, hs.registered)

	require.Error(t, svc.CheckHealth(context.Background()))
	assert.Equal(t, "invalid API key", hs.errors["metadata/tmdb"])

	client.testErr = nil
	require.NoError(t, svc.CheckHealth(context.Background()))
	assert.Equal(t, []string{"metadata/tmdb"}, hs.cleared)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name          string
		limit, offset int
		want          []int
	}{
		{"no limit", 0, 0, items},
		{"first five", 5, 0, []int{1, 2, 3, 4, 5}},
		{"show more", 5, 5, []int{6, 7}},
		{"offset past end", 5, 10, []int{}},
		{"negative offset", 2, -3, []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Page(items, tt.limit, tt.offset))
		})
	}
}
