package userdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store for service and handler tests.
type memStore struct {
	mu       sync.Mutex
	seq      int
	err      error
	profiles map[string]*Profile
	saved    map[ListKind][]SavedMovie
	ratings  []Rating
	tokens   []string
}

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]*Profile),
		saved:    make(map[ListKind][]SavedMovie),
	}
}

func (m *memStore) nextID() string {
	m.seq++
	return fmt.Sprintf("id-%d", m.seq)
}

func (m *memStore) record(ctx context.Context) error {
	m.tokens = append(m.tokens, AccessTokenFrom(ctx))
	return m.err
}

func (m *memStore) Name() string { return "memory" }

func (m *memStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *memStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		p = &Profile{ID: userID, CreatedAt: time.Now()}
		m.profiles[userID] = p
	}
	p.Username = update.Username
	p.AvatarURL = update.AvatarURL
	cp := *p
	return &cp, nil
}

func (m *memStore) ListSaved(ctx context.Context, kind ListKind, userID string) ([]SavedMovie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	var out []SavedMovie
	for _, s := range m.saved[kind] {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetSaved(ctx context.Context, kind ListKind, userID string, movieID int) (*SavedMovie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	for _, s := range m.saved[kind] {
		if s.UserID == userID && s.MovieID == movieID {
			cp := s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) AddSaved(ctx context.Context, kind ListKind, movie SavedMovie) (*SavedMovie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	movie.ID = m.nextID()
	movie.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	m.saved[kind] = append(m.saved[kind], movie)
	return &movie, nil
}

func (m *memStore) RemoveSaved(ctx context.Context, kind ListKind, userID string, movieID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return err
	}
	kept := m.saved[kind][:0]
	for _, s := range m.saved[kind] {
		if s.UserID != userID || s.MovieID != movieID {
			kept = append(kept, s)
		}
	}
	m.saved[kind] = kept
	return nil
}

func (m *memStore) ListRatings(ctx context.Context, userID string) ([]Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	var out []Rating
	for _, r := range m.ratings {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetRating(ctx context.Context, userID string, movieID int) (*Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	for _, r := range m.ratings {
		if r.UserID == userID && r.MovieID == movieID {
			cp := r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) InsertRating(ctx context.Context, rating Rating) (*Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	rating.ID = m.nextID()
	rating.CreatedAt = time.Now()
	rating.UpdatedAt = rating.CreatedAt
	m.ratings = append(m.ratings, rating)
	return &rating, nil
}

func (m *memStore) UpdateRating(ctx context.Context, id string, value int) (*Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	for i := range m.ratings {
		if m.ratings[i].ID == id {
			m.ratings[i].Rating = value
			m.ratings[i].UpdatedAt = time.Now()
			cp := m.ratings[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) DeleteRating(ctx context.Context, userID string, movieID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return err
	}
	kept := m.ratings[:0]
	for _, r := range m.ratings {
		if r.UserID != userID || r.MovieID != movieID {
			kept = append(kept, r)
		}
	}
	m.ratings = kept
	return nil
}
