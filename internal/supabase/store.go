package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/thatonemovie/thatonemovie/internal/userdata"
)

const (
	tableProfiles = "profiles"
	tableRatings  = "user_ratings"
)

type profileRow struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

type savedRow struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MovieID    int       `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	PosterPath *string   `json:"poster_path"`
	CreatedAt  time.Time `json:"created_at"`
}

type ratingRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store implements userdata.Store against the backend's tables.
type Store struct {
	client *Client
}

// NewStore creates a PostgREST-backed store.
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

var _ userdata.Store = (*Store)(nil)

func (s *Store) Name() string {
	return "supabase"
}

// Ping fetches the API root, which any valid key may read.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.do(ctx, http.MethodGet, "", nil, nil, nil)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*userdata.Profile, error) {
	var rows []profileRow
	q := url.Values{"select": {"*"}, "id": {eq(userID)}}
	if err := s.client.do(ctx, http.MethodGet, tableProfiles, q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, userdata.ErrNotFound
	}
	return rows[0].toProfile(), nil
}

// UpdateProfile patches the row created by the backend's sign-up trigger.
func (s *Store) UpdateProfile(ctx context.Context, userID string, update userdata.ProfileUpdate) (*userdata.Profile, error) {
	body := map[string]interface{}{"username": update.Username}
	if update.AvatarURL != "" {
		body["avatar_url"] = update.AvatarURL
	}

	var rows []profileRow
	q := url.Values{"id": {eq(userID)}}
	if err := s.client.do(ctx, http.MethodPatch, tableProfiles, q, body, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, userdata.ErrNotFound
	}
	return rows[0].toProfile(), nil
}

func (s *Store) ListSaved(ctx context.Context, kind userdata.ListKind, userID string) ([]userdata.SavedMovie, error) {
	if !kind.Valid() {
		return nil, userdata.ErrInvalidList
	}

	var rows []savedRow
	q := url.Values{"select": {"*"}, "user_id": {eq(userID)}, "order": {"created_at.desc"}}
	if err := s.client.do(ctx, http.MethodGet, string(kind), q, nil, &rows); err != nil {
		return nil, err
	}

	movies := make([]userdata.SavedMovie, 0, len(rows))
	for _, r := range rows {
		movies = append(movies, r.toSaved())
	}
	return movies, nil
}

func (s *Store) GetSaved(ctx context.Context, kind userdata.ListKind, userID string, movieID int) (*userdata.SavedMovie, error) {
	if !kind.Valid() {
		return nil, userdata.ErrInvalidList
	}

	var rows []savedRow
	q := url.Values{"select": {"*"}, "user_id": {eq(userID)}, "movie_id": {eq(movieID)}}
	if err := s.client.do(ctx, http.MethodGet, string(kind), q, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, userdata.ErrNotFound
	}
	saved := rows[0].toSaved()
	return &saved, nil
}

func (s *Store) AddSaved(ctx context.Context, kind userdata.ListKind, movie userdata.SavedMovie) (*userdata.SavedMovie, error) {
	if !kind.Valid() {
		return nil, userdata.ErrInvalidList
	}

	var posterPath *string
	if movie.PosterPath != "" {
		posterPath = &movie.PosterPath
	}

	var rows []savedRow
	insert := []map[string]interface{}{{
		"user_id":     movie.UserID,
		"movie_id":    movie.MovieID,
		"movie_title": movie.MovieTitle,
		"poster_path": posterPath,
	}}
	if err := s.client.do(ctx, http.MethodPost, string(kind), nil, insert, &rows); err != nil {
		if isUniqueViolation(err) {
			return nil, userdata.ErrAlreadyExists
		}
		return nil, err
	}
	if len(rows) == 0 {
		return &movie, nil
	}
	saved := rows[0].toSaved()
	return &saved, nil
}

func (s *Store) RemoveSaved(ctx context.Context, kind userdata.ListKind, userID string, movieID int) error {
	if !kind.Valid() {
		return userdata.ErrInvalidList
	}

	q := url.Values{"user_id": {eq(userID)}, "movie_id": {eq(movieID)}}
	return s.client.do(ctx, http.MethodDelete, string(kind), q, nil, nil)
}

func (s *Store) ListRatings(ctx context.Context, userID string) ([]userdata.Rating, error) {
	var rows []ratingRow
	q := url.Values{"select": {"*"}, "user_id": {eq(userID)}, "order": {"created_at.desc"}}
	if err := s.client.do(ctx, http.MethodGet, tableRatings, q, nil, &rows); err != nil {
		return nil, err
	}

	ratings := make([]userdata.Rating, 0, len(rows))
	for _, r := range rows {
		ratings = append(ratings, r.toRating())
	}
	return ratings, nil
}

func (s *Store) GetRating(ctx context.Context, userID string, movieID int) (*userdata.Rating, error) {
	var rows []ratingRow
	q := url.Values{"select": {"*"}, "user_id": {eq(userID)}, "movie_id": {eq(movieID)}}
	if err := s.client.do(ctx, http.MethodGet, tableRatings, q, nil, &rows); err != nil {
		return nil, err
	}
	return firstRating(rows)
}

func (s *Store) InsertRating(ctx context.Context, rating userdata.Rating) (*userdata.Rating, error) {
	var rows []ratingRow
	insert := []map[string]interface{}{{
		"user_id":  rating.UserID,
		"movie_id": rating.MovieID,
		"rating":   rating.Rating,
	}}
	if err := s.client.do(ctx, http.MethodPost, tableRatings, nil, insert, &rows); err != nil {
		if isUniqueViolation(err) {
			return nil, userdata.ErrAlreadyExists
		}
		return nil, err
	}
	return firstRating(rows)
}

func (s *Store) UpdateRating(ctx context.Context, id string, value int) (*userdata.Rating, error) {
	var rows []ratingRow
	body := map[string]interface{}{
		"rating":     value,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	q := url.Values{"id": {eq(id)}}
	if err := s.client.do(ctx, http.MethodPatch, tableRatings, q, body, &rows); err != nil {
		return nil, err
	}
	return firstRating(rows)
}

func (s *Store) DeleteRating(ctx context.Context, userID string, movieID int) error {
	q := url.Values{"user_id": {eq(userID)}, "movie_id": {eq(movieID)}}
	return s.client.do(ctx, http.MethodDelete, tableRatings, q, nil, nil)
}

func firstRating(rows []ratingRow) (*userdata.Rating, error) {
	if len(rows) == 0 {
		return nil, userdata.ErrNotFound
	}
	rating := rows[0].toRating()
	return &rating, nil
}

func (r profileRow) toProfile() *userdata.Profile {
	p := &userdata.Profile{ID: r.ID, Username: r.Username, CreatedAt: r.CreatedAt}
	if r.AvatarURL != nil {
		p.AvatarURL = *r.AvatarURL
	}
	return p
}

func (r savedRow) toSaved() userdata.SavedMovie {
	m := userdata.SavedMovie{
		ID:         r.ID,
		UserID:     r.UserID,
		MovieID:    r.MovieID,
		MovieTitle: r.MovieTitle,
		CreatedAt:  r.CreatedAt,
	}
	if r.PosterPath != nil {
		m.PosterPath = *r.PosterPath
	}
	return m
}

func (r ratingRow) toRating() userdata.Rating {
	return userdata.Rating{
		ID:        r.ID,
		UserID:    r.UserID,
		MovieID:   r.MovieID,
		Rating:    r.Rating,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
