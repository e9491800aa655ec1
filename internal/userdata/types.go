// Package userdata holds per-user profiles, favorites, watchlist and ratings.
package userdata

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidRating = errors.New("rating must be between 1 and 10")
	ErrInvalidList   = errors.New("unknown list")
)

const (
	MinRating = 1
	MaxRating = 10
)

// ListKind names a saved-movie list. The value is also the table name.
type ListKind string

const (
	ListFavorites ListKind = "favorites"
	ListWatchlist ListKind = "watchlist"
)

// Valid reports whether k is a known list.
func (k ListKind) Valid() bool {
	return k == ListFavorites || k == ListWatchlist
}

// Profile is a user's public profile.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SavedMovie is an entry in a favorites or watchlist list.
type SavedMovie struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	MovieID    int       `json:"movieId"`
	MovieTitle string    `json:"movieTitle"`
	PosterPath string    `json:"posterPath,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Rating is a user's 1..10 score for a movie.
type Rating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	MovieID   int       `json:"movieId"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileUpdate is the editable part of a profile.
type ProfileUpdate struct {
	Username  string `json:"username" validate:"required,min=3,max=30"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url,max=500"`
}

// SaveMovieInput adds a movie to a list.
type SaveMovieInput struct {
	MovieID    int    `json:"movieId" validate:"required,min=1"`
	MovieTitle string `json:"movieTitle" validate:"required,max=300"`
	PosterPath string `json:"posterPath" validate:"max=300"`
}

// RateInput sets a rating.
type RateInput struct {
	Rating int `json:"rating" validate:"min=1,max=10"`
}

// Store is the persistence contract implemented by the hosted backend and
// the local SQLite store. Lists are ordered newest first.
type Store interface {
	Name() string
	Ping(ctx context.Context) error

	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error)

	ListSaved(ctx context.Context, kind ListKind, userID string) ([]SavedMovie, error)
	GetSaved(ctx context.Context, kind ListKind, userID string, movieID int) (*SavedMovie, error)
	AddSaved(ctx context.Context, kind ListKind, movie SavedMovie) (*SavedMovie, error)
	RemoveSaved(ctx context.Context, kind ListKind, userID string, movieID int) error

	ListRatings(ctx context.Context, userID string) ([]Rating, error)
	GetRating(ctx context.Context, userID string, movieID int) (*Rating, error)
	InsertRating(ctx context.Context, rating Rating) (*Rating, error)
	UpdateRating(ctx context.Context, id string, value int) (*Rating, error)
	DeleteRating(ctx context.Context, userID string, movieID int) error
}

type accessTokenKey struct{}

// WithAccessToken attaches the caller's backend access token to ctx so
// stores that enforce row-level security can act as that user.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the token set by WithAccessToken, if any.
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
