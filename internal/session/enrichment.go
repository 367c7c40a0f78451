package session

import (
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/recipe"
)

// EnrichmentRequest is what an enrichment call needs, captured at the
// moment loading starts.
type EnrichmentRequest struct {
	Ticket  Ticket
	Names   []string
	Profile *domain.UserProfile
}

// BeginEnrichment marks loading and returns the names to enrich. Only
// one enrichment may be in flight: a second call while loading returns
// ErrEnrichmentInFlight. With no detections it returns ErrNothingToEnrich
// and leaves the flags alone.
func (s *Session) BeginEnrichment() (EnrichmentRequest, error) {
	var (
		req EnrichmentRequest
		err error
	)
	s.update("begin enrichment", func() bool {
		if s.flags.Loading {
			err = domain.ErrEnrichmentInFlight
			return false
		}
		names := s.store.Names()
		if len(names) == 0 {
			err = domain.ErrNothingToEnrich
			return false
		}
		req.Ticket = s.nextTicket()
		req.Names = names
		if s.profile != nil {
			p := copyProfile(*s.profile)
			req.Profile = &p
		}
		s.enrichHolder = req.Ticket.Seq
		s.flags.Loading = true
		s.flags.Loaded = false
		s.notice = nil
		s.loadingSince = s.now()
		return true
	})
	return req, err
}

// EnrichmentSucceeded attaches nutrition to the current detections and
// replaces the recipe list. Ignored if t no longer holds loading.
func (s *Session) EnrichmentSucceeded(t Ticket, e *domain.Enrichment) bool {
	applied := false
	s.update("enrichment succeeded", func() bool {
		if s.enrichHolder != t.Seq || !s.flags.Loading {
			return false
		}
		if e != nil {
			s.store.ApplyNutrition(e.Nutrition)
			if len(e.Recipes) > 0 {
				s.book.Replace(e.Recipes)
			}
		}
		s.releaseLoadingLocked()
		s.flags.Loaded = true
		s.flags.ShowNutrition = true
		s.flags.ShowPreparation = false
		s.notice = nil
		applied = true
		return true
	})
	return applied
}

// EnrichmentFailed clears loading and surfaces one placeholder recipe.
// Existing recipes and nutrition are left untouched.
func (s *Session) EnrichmentFailed(t Ticket, cause error) bool {
	applied := false
	s.update("enrichment failed", func() bool {
		if s.enrichHolder != t.Seq || !s.flags.Loading {
			return false
		}
		s.releaseLoadingLocked()
		n := recipe.ErrorPlaceholder(cause)
		s.notice = &n
		applied = true
		return true
	})
	return applied
}

func (s *Session) releaseLoadingLocked() {
	s.enrichHolder = 0
	s.flags.Loading = false
	s.loadingSince = time.Time{}
}

// Holds reports how long the detection slot and the loading flag have
// been held. Zero means not held.
func (s *Session) Holds() (request, loading time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.flags.RequestPending && !s.pendingSince.IsZero() {
		request = now.Sub(s.pendingSince)
	}
	if s.flags.Loading && !s.loadingSince.IsZero() {
		loading = now.Sub(s.loadingSince)
	}
	return request, loading
}

// ReleaseStuck force-releases the detection slot and the loading flag
// when they have been held longer than limit. A late completion of the
// released request is ignored. It reports what was released.
func (s *Session) ReleaseStuck(limit time.Duration, cause error) (request, loading bool) {
	s.update("release stuck", func() bool {
		now := s.now()
		if s.flags.RequestPending && now.Sub(s.pendingSince) >= limit {
			s.detectHolder = 0
			s.flags.RequestPending = false
			s.pendingSince = time.Time{}
			request = true
		}
		if s.flags.Loading && now.Sub(s.loadingSince) >= limit {
			s.releaseLoadingLocked()
			n := recipe.ErrorPlaceholder(cause)
			s.notice = &n
			loading = true
		}
		return request || loading
	})
	return request, loading
}
