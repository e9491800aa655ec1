package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/thatonemovie/thatonemovie/internal/userdata"
)

// Fixed-width UTC timestamps keep lexical and chronological order identical.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Store implements userdata.Store on SQLite.
type Store struct {
	db  *DB
	now func() time.Time
}

// NewStore creates a store on an opened and migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db, now: time.Now}
}

var _ userdata.Store = (*Store)(nil)

func (s *Store) Name() string {
	return "sqlite"
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.conn.PingContext(ctx)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*userdata.Profile, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT id, username, avatar_url, created_at FROM profiles WHERE id = ?`, userID)

	var p userdata.Profile
	var createdAt string
	if err := row.Scan(&p.ID, &p.Username, &p.AvatarURL, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userdata.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// UpdateProfile upserts, since locally there is no sign-up trigger creating the row.
func (s *Store) UpdateProfile(ctx context.Context, userID string, update userdata.ProfileUpdate) (*userdata.Profile, error) {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO profiles (id, username, avatar_url, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, avatar_url = excluded.avatar_url`,
		userID, update.Username, update.AvatarURL, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *Store) ListSaved(ctx context.Context, kind userdata.ListKind, userID string) ([]userdata.SavedMovie, error) {
	if !kind.Valid() {
		return nil, userdata.ErrInvalidList
	}

	rows, err := s.db.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, user_id, movie_id, movie_title, poster_path, created_at FROM %s
		 WHERE user_id = ? ORDER BY created_at DESC`, kind), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	defer rows.Close()

	movies := []userdata.SavedMovie{}
	for rows.Next() {
		m, err := scanSaved(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", kind, err)
		}
		movies = append(movies, *m)
	}
	return movies, rows.Err()
}

func (s *Store) GetSaved(ctx context.Context, kind userdata.ListKind, userID string, movieID int) (*userdata.SavedMovie, error) {
	if !kind.Valid() {
		return nil, userdata.ErrInvalidList
	}

	row := s.db.conn.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT id, user_id, movie_id, movie_title, poster_path, created_at FROM %s
		 WHERE user_id = ? AND movie_id = ?`, kind), userID, movieID)

	m, err := scanSaved(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userdata.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s entry: %w", kind, err)
	}
	return m, nil
}

func (s *Store) AddSaved(ctx context.Context, kind userdata.ListKind, movie userdata.SavedMovie) (*userdata.SavedMovie, error) {
	if !kind.Valid() {
		return nil, userdata.ErrInvalidList
	}

	movie.ID = uuid.New().String()
	now := s.now().UTC()
	movie.CreatedAt = now

	_, err := s.db.conn.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, user_id, movie_id, movie_title, poster_path, created_at) VALUES (?, ?, ?, ?, ?, ?)`, kind),
		movie.ID, movie.UserID, movie.MovieID, movie.MovieTitle, movie.PosterPath, now.Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, userdata.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to add to %s: %w", kind, err)
	}
	return &movie, nil
}

func (s *Store) RemoveSaved(ctx context.Context, kind userdata.ListKind, userID string, movieID int) error {
	if !kind.Valid() {
		return userdata.ErrInvalidList
	}

	_, err := s.db.conn.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE user_id = ? AND movie_id = ?`, kind), userID, movieID)
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", kind, err)
	}
	return nil
}

func (s *Store) ListRatings(ctx context.Context, userID string) ([]userdata.Rating, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, user_id, movie_id, rating, created_at, updated_at FROM user_ratings
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	ratings := []userdata.Rating{}
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		ratings = append(ratings, *r)
	}
	return ratings, rows.Err()
}

func (s *Store) GetRating(ctx context.Context, userID string, movieID int) (*userdata.Rating, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, movie_id, rating, created_at, updated_at FROM user_ratings
		 WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	return s.rating(row)
}

func (s *Store) InsertRating(ctx context.Context, rating userdata.Rating) (*userdata.Rating, error) {
	rating.ID = uuid.New().String()
	now := s.now().UTC()
	rating.CreatedAt = now
	rating.UpdatedAt = now

	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO user_ratings (id, user_id, movie_id, rating, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rating.ID, rating.UserID, rating.MovieID, rating.Rating, now.Format(timeFormat), now.Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, userdata.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert rating: %w", err)
	}
	return &rating, nil
}

func (s *Store) UpdateRating(ctx context.Context, id string, value int) (*userdata.Rating, error) {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE user_ratings SET rating = ?, updated_at = ? WHERE id = ?`, value, s.timestamp(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update rating: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, userdata.ErrNotFound
	}

	row := s.db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, movie_id, rating, created_at, updated_at FROM user_ratings WHERE id = ?`, id)
	return s.rating(row)
}

func (s *Store) DeleteRating(ctx context.Context, userID string, movieID int) error {
	_, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM user_ratings WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	if err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	return nil
}

func (s *Store) rating(row *sql.Row) (*userdata.Rating, error) {
	r, err := scanRating(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userdata.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return r, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeFormat)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSaved(row scanner) (*userdata.SavedMovie, error) {
	var m userdata.SavedMovie
	var createdAt string
	if err := row.Scan(&m.ID, &m.UserID, &m.MovieID, &m.MovieTitle, &m.PosterPath, &createdAt); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

func scanRating(row scanner) (*userdata.Rating, error) {
	var r userdata.Rating
	var createdAt, updatedAt string
	if err := row.Scan(&r.ID, &r.UserID, &r.MovieID, &r.Rating, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
