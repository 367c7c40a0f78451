package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
)

// RESTOption configures the RESTStore.
type RESTOption func(*RESTStore)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) RESTOption {
	return func(s *RESTStore) { s.http = h }
}

// RESTStore talks to the profile API:
//
//	GET  /users
//	GET  /users/{id}
//	POST /users
//	POST /favorites
type RESTStore struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

var _ domain.ProfileStore = (*RESTStore)(nil)

// NewRESTStore creates a store for the API rooted at baseURL.
func NewRESTStore(baseURL string, log *logger.Logger, opts ...RESTOption) *RESTStore {
	s := &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListUsers returns every registered user.
func (s *RESTStore) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	var rows []userRow
	if err := s.do(ctx, http.MethodGet, "/users", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.UserProfile, len(rows))
	for i, r := range rows {
		out[i] = r.profile()
	}
	return out, nil
}

// GetProfile fetches one user.
func (s *RESTStore) GetProfile(ctx context.Context, id string) (*domain.UserProfile, error) {
	var row userRow
	if err := s.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &row); err != nil {
		return nil, err
	}
	p := row.profile()
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

// CreateProfile registers a user and returns it with its assigned id.
func (s *RESTStore) CreateProfile(ctx context.Context, profile domain.UserProfile) (*domain.UserProfile, error) {
	var row userRow
	if err := s.do(ctx, http.MethodPost, "/users", rowFromProfile(profile), &row); err != nil {
		return nil, err
	}
	created := profile
	created.ID = string(row.ID)
	if row.FirstName != "" {
		created = row.profile()
	}
	s.log.Info("profile: created user %s (%s)", created.ID, created.Name)
	return &created, nil
}

// SaveFavorite stores a recipe for a user.
func (s *RESTStore) SaveFavorite(ctx context.Context, fav domain.Favorite) error {
	return s.do(ctx, http.MethodPost, "/favorites", rowFromFavorite(fav), nil)
}

func (s *RESTStore) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("profile: marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("profile: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	s.log.Debug("profile: %s %s", method, path)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("profile: %s %s: %w: %w", method, path, domain.ErrProfileService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("profile: read response: %w: %w", domain.ErrProfileService, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("profile: %s %s: %w", method, path, domain.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("profile: %s %s: %w: %s", method, path, domain.ErrProfileService, resp.Status)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("profile: unmarshal response: %w: %w", domain.ErrProfileService, err)
	}
	return nil
}
