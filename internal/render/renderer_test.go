package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/session"
)

type mockSink struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (m *mockSink) Send(_ context.Context, f Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, f)
	return m.err
}

func (m *mockSink) last() (Frame, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return Frame{}, 0
	}
	return m.frames[len(m.frames)-1], len(m.frames)
}

var quietLog = logger.New(logger.LevelOff, nil)

func banana() domain.Detection {
	return domain.Detection{
		Name: "banana",
		Box:  domain.BoundingBox{X1: 100, Y1: 100, X2: 200, Y2: 160},
		Nutrition: map[string]string{
			domain.FieldCalories: "89 kcal",
			domain.FieldFiber:    "2.6 g",
		},
	}
}

func TestBuildLive(t *testing.T) {
	r := New(quietLog)

	tests := []struct {
		name      string
		show      bool
		wantItems int
	}{
		{"nutrition hidden", false, 0},
		{"nutrition shown", true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := session.Snapshot{
				Version:    4,
				SessionID:  "s1",
				Flags:      domain.Flags{ShowNutrition: tt.show},
				Detections: []domain.Detection{banana()},
			}
			f := r.Build(snap)
			if f.Version != 4 || f.SessionID != "s1" || f.Mode != ModeLive {
				t.Fatalf("unexpected frame header %+v", f)
			}
			if len(f.Overlays) != 1 {
				t.Fatalf("expected 1 overlay, got %d", len(f.Overlays))
			}
			ov := f.Overlays[0]
			if ov.Name != "banana" || ov.Ring.Label.Text != "banana" {
				t.Fatalf("unexpected overlay %+v", ov)
			}
			if got := len(ov.Ring.Items); got != tt.wantItems {
				t.Fatalf("expected %d items, got %d", tt.wantItems, got)
			}
		})
	}
}

func TestBuildLiveItems(t *testing.T) {
	r := New(quietLog)
	snap := session.Snapshot{
		Flags:      domain.Flags{ShowNutrition: true},
		Detections: []domain.Detection{banana()},
	}
	items := r.Build(snap).Overlays[0].Ring.Items

	want := []struct {
		label string
		value string
		angle float64
	}{
		{"Calorías", "89 kcal", -45},
		{"Fibra", "2.6 g", 0},
		{"Calcio", domain.Unavailable, 45},
	}
	for i, w := range want {
		got := items[i]
		if got.Label != w.label || got.Value != w.value || got.AngleDegrees != w.angle {
			t.Errorf("item %d: expected %s=%s@%v, got %s=%s@%v",
				i, w.label, w.value, w.angle, got.Label, got.Value, got.AngleDegrees)
		}
	}
}

func TestBuildLiveExtraFieldsUseEvenDistribution(t *testing.T) {
	r := New(quietLog)
	d := banana()
	d.Nutrition[domain.FieldCalcium] = "5 mg"
	d.Nutrition["proteina"] = "1.1 g"
	d.Nutrition["azucar"] = "12 g"
	snap := session.Snapshot{
		Flags:      domain.Flags{ShowNutrition: true},
		Detections: []domain.Detection{d},
	}
	items := r.Build(snap).Overlays[0].Ring.Items

	want := []struct {
		label string
		value string
		angle float64
	}{
		{"Calorías", "89 kcal", 0},
		{"Fibra", "2.6 g", 72},
		{"Calcio", "5 mg", 144},
		{"azucar", "12 g", 216},
		{"proteina", "1.1 g", 288},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, w := range want {
		got := items[i]
		if got.Label != w.label || got.Value != w.value || got.AngleDegrees != w.angle {
			t.Errorf("item %d: expected %s=%s@%v, got %s=%s@%v",
				i, w.label, w.value, w.angle, got.Label, got.Value, got.AngleDegrees)
		}
	}
}

func TestBuildLegacy(t *testing.T) {
	r := New(quietLog, WithMode(ModeLegacy))
	snap := session.Snapshot{
		Detections: []domain.Detection{{Name: "pan", Box: domain.BoundingBox{X2: 100, Y2: 100}}},
	}
	ring := r.Build(snap).Overlays[0].Ring

	if len(ring.Items) != 3 {
		t.Fatalf("expected 3 template items, got %d", len(ring.Items))
	}
	angles := []float64{-50, -30, -10}
	for i, it := range ring.Items {
		if it.AngleDegrees != angles[i] {
			t.Errorf("item %d: expected angle %v, got %v", i, angles[i], it.AngleDegrees)
		}
	}
	if ring.Items[1].Label != "Peso" || ring.Items[1].Value != "40g" {
		t.Errorf("unexpected template item %+v", ring.Items[1])
	}
	if ring.RingRadius != 70 || ring.InfoRadius != 130 {
		t.Errorf("expected radii 70/130, got %v/%v", ring.RingRadius, ring.InfoRadius)
	}
	if ring.Label.StartOffset != 25 {
		t.Errorf("expected label start offset 25, got %v", ring.Label.StartOffset)
	}
}

func TestBuildMenu(t *testing.T) {
	r := New(quietLog)
	recipes := []domain.Recipe{
		{Title: "Batido", Ingredients: "banana, leche", Preparation: "Licuar."},
		{Title: "Pan de banana", Ingredients: "banana, harina", Preparation: "Hornear."},
	}

	tests := []struct {
		name       string
		flags      domain.Flags
		wantStatus string
		wantRecipe bool
		wantPrep   string
	}{
		{"idle", domain.Flags{MenuOpen: true}, "", false, ""},
		{"loading", domain.Flags{MenuOpen: true, Loading: true}, StatusLoading, false, ""},
		{"loaded", domain.Flags{MenuOpen: true, Loaded: true}, StatusLoaded, true, ""},
		{"preparation", domain.Flags{MenuOpen: true, Loaded: true, ShowPreparation: true}, StatusLoaded, true, "Hornear."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := session.Snapshot{
				Flags:       tt.flags,
				Detections:  []domain.Detection{banana(), banana()},
				Recipes:     recipes,
				RecipeIndex: 1,
			}
			m := r.Build(snap).Menu
			if m.Status != tt.wantStatus {
				t.Fatalf("expected status %q, got %q", tt.wantStatus, m.Status)
			}
			if len(m.Names) != 1 || m.Names[0] != "banana" {
				t.Fatalf("expected names [banana], got %v", m.Names)
			}
			if (m.Recipe != nil) != tt.wantRecipe {
				t.Fatalf("expected recipe present=%v, got %+v", tt.wantRecipe, m.Recipe)
			}
			if m.Recipe == nil {
				return
			}
			if m.Recipe.Title != "Pan de banana" || m.Recipe.Index != 1 || m.Recipe.Count != 2 {
				t.Fatalf("unexpected recipe view %+v", m.Recipe)
			}
			if m.Recipe.Preparation != tt.wantPrep {
				t.Fatalf("expected preparation %q, got %q", tt.wantPrep, m.Recipe.Preparation)
			}
		})
	}
}

func TestBuildMenuProfileAndRegistration(t *testing.T) {
	r := New(quietLog)
	snap := session.Snapshot{
		Profile: &domain.UserProfile{ID: "1", Name: "Lucía"},
		Registration: domain.Registration{
			Name:  "Carlos",
			Focus: domain.FieldBirthDate,
		},
	}
	m := r.Build(snap).Menu
	if m.User != "Lucía" {
		t.Fatalf("expected user Lucía, got %q", m.User)
	}
	if m.Register == nil || m.Register.Name != "Carlos" || m.Register.Focus != "birth_date" {
		t.Fatalf("unexpected registration %+v", m.Register)
	}

	empty := r.Build(session.Snapshot{}).Menu
	if empty.Register != nil {
		t.Fatalf("expected no registration panel, got %+v", empty.Register)
	}
}

func TestPublishSinkError(t *testing.T) {
	failing := &mockSink{err: errors.New("closed")}
	ok := &mockSink{}
	r := New(quietLog, WithSink(failing), WithSink(ok))

	r.Publish(context.Background(), Frame{Version: 7})

	if f, n := ok.last(); n != 1 || f.Version != 7 {
		t.Fatalf("expected second sink to get v7, got v%d (%d frames)", f.Version, n)
	}
	if r.Latest().Version != 7 {
		t.Fatalf("expected latest v7, got v%d", r.Latest().Version)
	}
}

func TestRunRendersOnChange(t *testing.T) {
	sink := &mockSink{}
	r := New(quietLog, WithSink(sink))
	sess := session.New(quietLog, session.WithID("run"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, sess)
		close(done)
	}()

	sess.StartDetection()
	sess.CloseMenu()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if r.Latest().Version == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	f := r.Latest()
	if f.Version != 2 {
		t.Fatalf("expected frame v2, got v%d", f.Version)
	}
	if f.Menu.Open || !f.Menu.Detecting {
		t.Fatalf("unexpected menu %+v", f.Menu)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i := 1; i < len(sink.frames); i++ {
		if sink.frames[i].Version <= sink.frames[i-1].Version {
			t.Fatalf("frames out of order: %d after %d", sink.frames[i].Version, sink.frames[i-1].Version)
		}
	}
}
