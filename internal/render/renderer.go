// Package render turns session snapshots into overlay frames and pushes
// them to every attached surface.
package render

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/layout"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/mailbox"
	"github.com/hammamikhairi/foodlens/internal/session"
)

// Mode selects how info items are drawn.
type Mode string

const (
	// ModeLive shows the fetched nutrition of each detection.
	ModeLive Mode = "live"
	// ModeLegacy shows fixed placeholder items on every detection.
	ModeLegacy Mode = "legacy"
)

// ParseMode maps a config string to a Mode, defaulting to ModeLive.
func ParseMode(s string) Mode {
	if Mode(s) == ModeLegacy {
		return ModeLegacy
	}
	return ModeLive
}

// Sink receives every rendered frame. Send must not block for long; the
// renderer calls sinks one after another.
type Sink interface {
	Send(ctx context.Context, f Frame) error
}

// Option configures the renderer.
type Option func(*Renderer)

// WithMode sets the presentation mode.
func WithMode(m Mode) Option {
	return func(r *Renderer) { r.mode = m }
}

// WithLayout overrides the live layout options.
func WithLayout(opts layout.Options) Option {
	return func(r *Renderer) { r.live = opts }
}

// WithAngles overrides the nutrition angle table.
func WithAngles(table []float64) Option {
	return func(r *Renderer) { r.angles = append([]float64(nil), table...) }
}

// WithFields sets which nutrition fields are drawn and in what order.
func WithFields(fields ...string) Option {
	return func(r *Renderer) { r.fields = append([]string(nil), fields...) }
}

// WithSink attaches a surface.
func WithSink(s Sink) Option {
	return func(r *Renderer) { r.sinks = append(r.sinks, s) }
}

// fieldLabels are the on-screen names of the nutrition fields.
var fieldLabels = map[string]string{
	domain.FieldCalories: "Calorías",
	domain.FieldFiber:    "Fibra",
	domain.FieldCalcium:  "Calcio",
}

// templateItems are drawn on every detection in legacy mode.
var templateItems = []layout.Item{
	{Label: "Unidades", Value: "2"},
	{Label: "Peso", Value: "40g"},
	{Label: "Calorías", Value: "160"},
}

// Renderer builds frames from snapshots.
type Renderer struct {
	log    *logger.Logger
	mode   Mode
	live   layout.Options
	legacy layout.Options
	angles []float64
	fields []string
	sinks  []Sink

	mu     sync.RWMutex
	latest Frame
}

// New creates a renderer.
func New(log *logger.Logger, opts ...Option) *Renderer {
	legacy := layout.DefaultOptions()
	legacy.LabelStartOffset = 25

	r := &Renderer{
		log:    log,
		mode:   ModeLive,
		live:   layout.DefaultOptions(),
		legacy: legacy,
		angles: layout.NutritionAngles,
		fields: domain.DefaultNutritionFields,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build renders one snapshot. It is a pure function of the snapshot and
// the renderer's configuration.
func (r *Renderer) Build(snap session.Snapshot) Frame {
	f := Frame{
		Version:    snap.Version,
		SessionID:  snap.SessionID,
		Mode:       r.mode,
		Overlays:   make([]Overlay, 0, len(snap.Detections)),
		Menu:       r.menu(snap),
		Transcript: snap.Transcript,
	}

	for i, d := range snap.Detections {
		var ring layout.Ring
		if r.mode == ModeLegacy {
			ring = layout.LayoutRing(d.Box, d.Name, templateItems, layout.FixedAngles(layout.TemplateAngles...), r.legacy)
		} else {
			items := r.nutritionItems(d, snap.Flags.ShowNutrition)
			ring = layout.LayoutRing(d.Box, d.Name, items, layout.PolicyFor(len(items), r.angles), r.live)
		}
		f.Overlays = append(f.Overlays, Overlay{Index: i, Name: d.Name, Box: d.Box, Ring: ring})
	}
	return f
}

func (r *Renderer) nutritionItems(d domain.Detection, show bool) []layout.Item {
	if !show || !d.HasNutrition() {
		return nil
	}
	// Configured fields first, in order, then any other field the
	// enrichment returned, sorted.
	items := make([]layout.Item, 0, len(r.fields)+len(d.Nutrition))
	seen := make(map[string]bool, len(r.fields))
	for _, field := range r.fields {
		seen[field] = true
		v, ok := d.Nutrition[field]
		if !ok {
			v = domain.Unavailable
		}
		items = append(items, layout.Item{Label: labelFor(field), Value: v})
	}

	extra := make([]string, 0, len(d.Nutrition))
	for field := range d.Nutrition {
		if !seen[field] {
			extra = append(extra, field)
		}
	}
	sort.Strings(extra)
	for _, field := range extra {
		items = append(items, layout.Item{Label: labelFor(field), Value: d.Nutrition[field]})
	}
	return items
}

func labelFor(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return field
}

func (r *Renderer) menu(snap session.Snapshot) Menu {
	m := Menu{
		Open:      snap.Flags.MenuOpen,
		Detecting: snap.Flags.DetectionActive,
		NewInfo:   snap.Flags.NewInfoAvailable,
		Names:     snap.Names(),
		Notice:    snap.Notice,
	}

	switch {
	case snap.Flags.Loading:
		m.Status = StatusLoading
	case snap.Flags.Loaded:
		m.Status = StatusLoaded
	}

	if snap.Flags.Loaded {
		if rec, ok := snap.CurrentRecipe(); ok {
			view := &RecipeView{
				Index:       snap.RecipeIndex,
				Count:       len(snap.Recipes),
				Title:       rec.Title,
				Ingredients: rec.Ingredients,
			}
			if snap.Flags.ShowPreparation {
				view.Preparation = rec.Preparation
			}
			m.Recipe = view
		}
	}

	if snap.Profile != nil {
		m.User = snap.Profile.Name
	}
	reg := snap.Registration
	if reg.Name != "" || reg.BirthDate != "" || len(reg.Cuisines) > 0 {
		m.Register = &Registration{
			Name:      reg.Name,
			BirthDate: reg.BirthDate,
			Cuisines:  reg.Cuisines,
			Focus:     reg.Focus.String(),
		}
	}
	return m
}

// Latest returns the most recently rendered frame.
func (r *Renderer) Latest() Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Run renders every snapshot sess publishes until ctx is cancelled.
// Snapshots that arrive while a frame is being pushed are coalesced: only
// the newest is rendered.
func (r *Renderer) Run(ctx context.Context, sess *session.Session) {
	pending := mailbox.New[session.Snapshot]()
	sess.Subscribe(func(s session.Snapshot) { pending.Put(s) })

	go func() {
		<-ctx.Done()
		pending.Close()
	}()

	r.log.Info("renderer started (mode=%s, sinks=%d)", r.mode, len(r.sinks))
	var last uint64
	rendered := false
	for {
		snap, ok := pending.Take()
		if !ok {
			r.log.Info("renderer stopped")
			return
		}
		if rendered && snap.Version <= last {
			continue
		}
		last, rendered = snap.Version, true
		r.Publish(ctx, r.Build(snap))
	}
}

// Publish records f as the latest frame and sends it to every sink.
func (r *Renderer) Publish(ctx context.Context, f Frame) {
	r.mu.Lock()
	r.latest = f
	r.mu.Unlock()

	for i, s := range r.sinks {
		if err := s.Send(ctx, f); err != nil {
			r.log.Warn("render: sink %d: %v", i, fmt.Errorf("frame v%d: %w", f.Version, err))
		}
	}
}
