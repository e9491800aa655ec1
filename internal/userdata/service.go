package userdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const healthCategory = "backend"

// HealthService is the interface for central health tracking.
type HealthService interface {
	RegisterItemStr(category, id, name string)
	SetErrorStr(category, id, message string)
	ClearStatusStr(category, id string)
}

// Service applies user data rules on top of a Store.
type Service struct {
	store         Store
	logger        zerolog.Logger
	healthService HealthService
}

// NewService creates a user data service.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "userdata").Str("backend", store.Name()).Logger(),
	}
}

// SetHealthService sets the central health service.
func (s *Service) SetHealthService(hs HealthService) {
	s.healthService = hs
	if hs != nil {
		hs.RegisterItemStr(healthCategory, s.store.Name(), "User data backend")
	}
}

// CheckHealth pings the store and records the result.
func (s *Service) CheckHealth(ctx context.Context) error {
	err := s.store.Ping(ctx)
	if s.healthService != nil {
		if err != nil {
			s.healthService.SetErrorStr(healthCategory, s.store.Name(), err.Error())
		} else {
			s.healthService.ClearStatusStr(healthCategory, s.store.Name())
		}
	}
	return err
}

// GetProfile returns the user's profile or ErrNotFound.
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Error().Err(err).Str("userId", userID).Msg("Failed to fetch profile")
	}
	return profile, err
}

// UpdateProfile updates the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error) {
	profile, err := s.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		s.logger.Error().Err(err).Str("userId", userID).Msg("Failed to update profile")
		return nil, err
	}
	return profile, nil
}

// ListSaved returns a list newest first. Failures are logged and yield an empty list.
func (s *Service) ListSaved(ctx context.Context, kind ListKind, userID string) []SavedMovie {
	if !kind.Valid() {
		return []SavedMovie{}
	}
	movies, err := s.store.ListSaved(ctx, kind, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("list", string(kind)).Str("userId", userID).Msg("Failed to fetch saved movies")
		return []SavedMovie{}
	}
	if movies == nil {
		return []SavedMovie{}
	}
	return movies
}

// IsSaved reports whether the movie is on the list. Lookup errors count as not saved.
func (s *Service) IsSaved(ctx context.Context, kind ListKind, userID string, movieID int) bool {
	if !kind.Valid() {
		return false
	}
	_, err := s.store.GetSaved(ctx, kind, userID, movieID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error().Err(err).Str("list", string(kind)).Int("movieId", movieID).Msg("Failed to check saved status")
		}
		return false
	}
	return true
}

// AddSaved adds a movie to a list. Adding a movie twice is ErrAlreadyExists.
func (s *Service) AddSaved(ctx context.Context, kind ListKind, userID string, input SaveMovieInput) (*SavedMovie, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidList, kind)
	}

	if _, err := s.store.GetSaved(ctx, kind, userID, input.MovieID); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	saved, err := s.store.AddSaved(ctx, kind, SavedMovie{
		UserID:     userID,
		MovieID:    input.MovieID,
		MovieTitle: input.MovieTitle,
		PosterPath: input.PosterPath,
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyExists) {
			s.logger.Error().Err(err).Str("list", string(kind)).Int("movieId", input.MovieID).Msg("Failed to add saved movie")
		}
		return nil, err
	}

	s.logger.Debug().Str("list", string(kind)).Int("movieId", input.MovieID).Msg("Added movie to list")
	return saved, nil
}

// RemoveSaved removes a movie from a list. Removing an absent movie succeeds.
func (s *Service) RemoveSaved(ctx context.Context, kind ListKind, userID string, movieID int) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidList, kind)
	}
	if err := s.store.RemoveSaved(ctx, kind, userID, movieID); err != nil {
		s.logger.Error().Err(err).Str("list", string(kind)).Int("movieId", movieID).Msg("Failed to remove saved movie")
		return err
	}
	return nil
}

// ListRatings returns the user's ratings newest first, or an empty list on failure.
func (s *Service) ListRatings(ctx context.Context, userID string) []Rating {
	ratings, err := s.store.ListRatings(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("userId", userID).Msg("Failed to fetch ratings")
		return []Rating{}
	}
	if ratings == nil {
		return []Rating{}
	}
	return ratings
}

// GetRating returns the user's rating for a movie, or nil if unrated.
func (s *Service) GetRating(ctx context.Context, userID string, movieID int) *Rating {
	rating, err := s.store.GetRating(ctx, userID, movieID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error().Err(err).Int("movieId", movieID).Msg("Failed to fetch rating")
		}
		return nil
	}
	return rating
}

// RateMovie sets the user's rating, updating an existing one or inserting a new one.
func (s *Service) RateMovie(ctx context.Context, userID string, movieID, value int) (*Rating, error) {
	if value < MinRating || value > MaxRating {
		return nil, ErrInvalidRating
	}

	existing, err := s.store.GetRating(ctx, userID, movieID)
	switch {
	case err == nil:
		existing, err = s.store.UpdateRating(ctx, existing.ID, value)
	case errors.Is(err, ErrNotFound):
		existing, err = s.store.InsertRating(ctx, Rating{UserID: userID, MovieID: movieID, Rating: value})
	}
	if err != nil {
		s.logger.Error().Err(err).Int("movieId", movieID).Msg("Failed to rate movie")
		return nil, err
	}

	s.logger.Debug().Int("movieId", movieID).Int("rating", value).Msg("Rated movie")
	return existing, nil
}

// DeleteRating removes the user's rating for a movie.
func (s *Service) DeleteRating(ctx context.Context, userID string, movieID int) error {
	if err := s.store.DeleteRating(ctx, userID, movieID); err != nil {
		s.logger.Error().Err(err).Int("movieId", movieID).Msg("Failed to delete rating")
		return err
	}
	return nil
}
