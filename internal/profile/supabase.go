package profile

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// Table names.
const (
	usersTable     = "users"
	favoritesTable = "favorite_recipes"
)

// SupabaseStore keeps profiles in the "users" table and favorites in
// "favorite_recipes".
type SupabaseStore struct {
	client *supabase.Client
	log    *logger.Logger
}

var _ domain.ProfileStore = (*SupabaseStore)(nil)

// NewSupabaseStore connects to the Supabase project at url.
func NewSupabaseStore(url, key string, log *logger.Logger) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("profile: creating Supabase client: %w", err)
	}
	return &SupabaseStore{client: client, log: log}, nil
}

// ListUsers returns every row of the users table.
func (s *SupabaseStore) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	var rows []userRow
	err := call(ctx, func() error {
		_, err := s.client.From(usersTable).Select("*", "", false).ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("profile: listing users: %w: %w", domain.ErrProfileService, err)
	}

	out := make([]domain.UserProfile, len(rows))
	for i, r := range rows {
		out[i] = r.profile()
	}
	s.log.Debug("profile: %d users in Supabase", len(out))
	return out, nil
}

// GetProfile fetches one user by id.
func (s *SupabaseStore) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	var rows []userRow
	err := call(ctx, func() error {
		_, err := s.client.From(usersTable).Select("*", "", false).Eq("id", id).ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("profile: fetching user %s: %w: %w", id, domain.ErrProfileService, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile: user %s: %w", id, domain.ErrNotFound)
	}
	p := rows[0].profile()
	return &p, nil
}

// CreateProfile inserts a user and returns the stored row.
func (s *SupabaseStore) CreateProfile(ctx context.Context, profile domain.UserProfile) (*domain.UserProfile, error) {
	var rows []userRow
	err := call(ctx, func() error {
		_, err := s.client.From(usersTable).
			Insert(rowFromProfile(profile), false, "", "representation", "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("profile: creating user: %w: %w", domain.ErrProfileService, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile: creating user: %w: no row returned", domain.ErrProfileService)
	}
	p := rows[0].profile()
	s.log.Info("profile: created Supabase user %s (%s)", p.ID, p.Name)
	return &p, nil
}

// SaveFavorite inserts a favorite_recipes row.
func (s *SupabaseStore) SaveFavorite(ctx context.Context, fav domain.Favorite) error {
	err := call(ctx, func() error {
		_, _, err := s.client.From(favoritesTable).
			Insert(rowFromFavorite(fav), false, "", "minimal", "").
			Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("profile: saving favorite: %w: %w", domain.ErrProfileService, err)
	}
	return nil
}

// call runs fn but gives up when ctx ends. The Supabase client has no
// context support, so an abandoned call finishes in the background.
func call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
