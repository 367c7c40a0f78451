// Package storage provides the in-memory profile store used offline and
// in tests.
package storage

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// Compile-time interface check.
var _ domain.ProfileStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory profile store. Safe for concurrent access.
type MemoryStore struct {
	mu        sync.RWMutex
	profiles  map[string]domain.UserProfile
	favorites map[string][]domain.Recipe
	nextID    int
	log       *logger.Logger
}

// NewMemoryStore creates an in-memory store seeded with profiles.
func NewMemoryStore(log *logger.Logger, seed ...domain.UserProfile) *MemoryStore {
	s := &MemoryStore{
		profiles:  make(map[string]domain.UserProfile),
		favorites: make(map[string][]domain.Recipe),
		log:       log,
	}
	for _, p := range seed {
		if p.ID == "" {
			p.ID = s.allocID()
		}
		s.profiles[p.ID] = clone(p)
	}
	return s
}

// ListUsers returns every profile ordered by id.
func (s *MemoryStore) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	s.log.Debug("listing users, count=%d", len(out))
	return out, nil
}

// GetProfile retrieves a profile by id.
func (s *MemoryStore) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		s.log.Debug("profile not found: %s", id)
		return nil, domain.ErrNotFound
	}
	out := clone(p)
	return &out, nil
}

// CreateProfile stores profile under a fresh id and returns it.
func (s *MemoryStore) CreateProfile(ctx context.Context, profile domain.UserProfile) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile = clone(profile)
	profile.ID = s.allocID()
	s.profiles[profile.ID] = profile
	s.log.Debug("created profile %s (%s)", profile.ID, profile.Name)

	out := clone(profile)
	return &out, nil
}

// SaveFavorite appends a recipe to the user's favorites.
func (s *MemoryStore) SaveFavorite(ctx context.Context, fav domain.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[fav.UserID]; !ok {
		return domain.ErrNotFound
	}
	s.favorites[fav.UserID] = append(s.favorites[fav.UserID], fav.Recipe)
	s.log.Debug("saved favorite %q for %s", fav.Recipe.Title, fav.UserID)
	return nil
}

// Favorites returns the saved recipes of a user.
func (s *MemoryStore) Favorites(userID string) []domain.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Recipe(nil), s.favorites[userID]...)
}

// allocID returns the next unused numeric id. Caller holds mu or owns s.
func (s *MemoryStore) allocID() string {
	for {
		s.nextID++
		id := strconv.Itoa(s.nextID)
		if _, taken := s.profiles[id]; !taken {
			return id
		}
	}
}

func clone(p domain.UserProfile) domain.UserProfile {
	p.PreferredCuisines = append([]string(nil), p.PreferredCuisines...)
	return p
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
