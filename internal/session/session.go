// Package session implements the state container shared by the capture
// loop, the voice dispatcher and the UI.
//
// All state lives behind one mutex and only changes through named
// transitions. After every transition the container publishes an
// immutable Snapshot with an increasing version, so observers always see
// detections, flags and recipes from the same update.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/fusion"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/recipe"
)

// Option configures the session.
type Option func(*Session)

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithStore sets the fusion store the session owns.
func WithStore(store *fusion.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Listener receives snapshots in version order.
type Listener func(Snapshot)

// Ticket identifies one in-flight request. Completing a request with a
// ticket that no longer matches the holder is a no-op.
type Ticket struct {
	Seq   uint64
	Epoch uint64 // detection epoch at issue time
}

// Session is the state container.
type Session struct {
	id  string
	log *logger.Logger
	now func() time.Time

	mu         sync.Mutex
	flags      domain.Flags
	store      *fusion.Store
	book       *recipe.Book
	notice     *domain.Recipe
	profile    *domain.UserProfile
	reg        domain.Registration
	transcript string
	version    uint64
	updatedAt  time.Time

	epoch        uint64 // bumped whenever detection is switched on or off
	seq          uint64
	detectHolder uint64
	enrichHolder uint64
	pendingSince time.Time
	loadingSince time.Time

	deliverMu sync.Mutex
	listeners []Listener
	delivered uint64
}

// New creates a session with detection off and the menu closed.
func New(log *logger.Logger, opts ...Option) *Session {
	s := &Session{
		id:   uuid.NewString(),
		log:  log,
		now:  time.Now,
		book: recipe.NewBook(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = fusion.New()
	}
	s.updatedAt = s.now()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Subscribe registers a listener and immediately hands it the current
// snapshot. Listeners run on the goroutine that made the transition and
// must not block.
func (s *Session) Subscribe(l Listener) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	// Taken under deliverMu, so it is at least as new as anything
	// delivered so far.
	snap := s.Snapshot()
	s.listeners = append(s.listeners, l)
	if snap.Version == s.delivered {
		l(snap)
		return
	}
	// A transition is still on its way to publish; deliver it to everyone
	// now and let publish drop it.
	s.delivered = snap.Version
	for _, each := range s.listeners {
		each(snap)
	}
}

// Snapshot returns a consistent copy of the whole state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// update runs fn under the lock. When fn reports a change the version is
// bumped and the resulting snapshot is published after unlocking.
func (s *Session) update(name string, fn func() bool) {
	s.mu.Lock()
	changed := fn()
	if !changed {
		s.mu.Unlock()
		return
	}
	s.version++
	s.updatedAt = s.now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("session: %s (v%d)", name, snap.Version)
	s.publish(snap)
}

func (s *Session) publish(snap Snapshot) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if snap.Version <= s.delivered {
		return
	}
	s.delivered = snap.Version
	for _, l := range s.listeners {
		l(snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:      s.version,
		SessionID:    s.id,
		Flags:        s.flags,
		Detections:   s.store.Detections(),
		Recipes:      s.book.List(),
		RecipeIndex:  s.book.Index(),
		Registration: s.registrationLocked(),
		Transcript:   s.transcript,
		UpdatedAt:    s.updatedAt,
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	if s.profile != nil {
		p := copyProfile(*s.profile)
		snap.Profile = &p
	}
	return snap
}

func (s *Session) nextTicket() Ticket {
	s.seq++
	return Ticket{Seq: s.seq, Epoch: s.epoch}
}

func copyProfile(p domain.UserProfile) domain.UserProfile {
	p.PreferredCuisines = append([]string(nil), p.PreferredCuisines...)
	return p
}
