// Package fusion holds the current detection set and carries enrichment
// data across detection cycles.
//
// Detections are matched between cycles by name only, since the
// detector supplies no stable id. Two apples in the same frame are one
// identity: they receive the same nutrition. WithProximityMatching
// narrows this by pairing same-name instances with the nearest previous
// instance, which matters once instances carry diverging data.
//
// A Store is not safe for concurrent use. The session container owns
// one and serializes every call.
package fusion

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// Option configures the store.
type Option func(*Store)

// WithFields sets the nutrition fields every enriched detection carries.
func WithFields(fields ...string) Option {
	return func(s *Store) {
		s.fields = append([]string(nil), fields...)
	}
}

// WithProximityMatching pairs same-name instances by nearest center
// instead of first match.
func WithProximityMatching() Option {
	return func(s *Store) { s.proximity = true }
}

// Store is the authoritative current detection set.
type Store struct {
	current   []domain.Detection
	fields    []string
	proximity bool
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{fields: domain.DefaultNutritionFields}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Merge replaces the current set with raw, copying nutrition forward
// from previous detections with the same name. Detections that are no
// longer seen are dropped. sizeChanged reports whether the number of
// detections differs from the previous set.
func (s *Store) Merge(raw []domain.RawDetection) (out []domain.Detection, sizeChanged bool) {
	prev := s.current
	used := make([]bool, len(prev))

	out = make([]domain.Detection, 0, len(raw))
	for _, r := range raw {
		d := domain.Detection{
			Name: strings.TrimSpace(r.Name),
			Box:  r.Coordinates.Normalize(),
		}
		if i := s.match(prev, used, d); i >= 0 {
			used[i] = true
			d.Nutrition = prev[i].Clone().Nutrition
		}
		out = append(out, d)
	}

	sizeChanged = len(out) != len(prev)
	s.current = out
	return domain.CloneDetections(out), sizeChanged
}

// match returns the index of the previous detection whose nutrition d
// inherits, or -1.
func (s *Store) match(prev []domain.Detection, used []bool, d domain.Detection) int {
	if !s.proximity {
		for i, p := range prev {
			if p.Name == d.Name {
				return i
			}
		}
		return -1
	}

	cx, cy := d.Box.Center()
	at := r2.Vec{X: cx, Y: cy}

	best, fallback := -1, -1
	bestDist := math.Inf(1)
	for i, p := range prev {
		if p.Name != d.Name {
			continue
		}
		if fallback < 0 {
			fallback = i
		}
		if used[i] {
			continue
		}
		px, py := p.Box.Center()
		if dist := r2.Norm(r2.Sub(at, r2.Vec{X: px, Y: py})); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best >= 0 {
		return best
	}
	return fallback
}

// ApplyNutrition attaches nutrition to every current detection whose
// name is a key of byName. Detections without an entry get the
// Unavailable sentinel for every expected field, as do missing fields
// of matched entries.
func (s *Store) ApplyNutrition(byName map[string]map[string]string) {
	folded := make(map[string]map[string]string, len(byName))
	for name, n := range byName {
		folded[foldName(name)] = n
	}

	for i := range s.current {
		d := &s.current[i]
		data, ok := byName[d.Name]
		if !ok {
			data, ok = folded[foldName(d.Name)]
		}

		n := make(map[string]string, len(s.fields))
		if ok {
			for k, v := range data {
				n[k] = v
			}
		}
		for _, f := range s.fields {
			if strings.TrimSpace(n[f]) == "" {
				n[f] = domain.Unavailable
			}
		}
		d.Nutrition = n
	}
}

// Detections returns a copy of the current set.
func (s *Store) Detections() []domain.Detection {
	return domain.CloneDetections(s.current)
}

// Names returns the distinct detection names in order of first
// appearance.
func (s *Store) Names() []string {
	seen := make(map[string]bool, len(s.current))
	var names []string
	for _, d := range s.current {
		if d.Name == "" || seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		names = append(names, d.Name)
	}
	return names
}

// Len returns the number of current detections.
func (s *Store) Len() int { return len(s.current) }

// Fields returns the expected nutrition fields.
func (s *Store) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Reset drops every detection.
func (s *Store) Reset() { s.current = nil }

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
