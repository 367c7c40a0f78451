package layout

import (
	"math"
	"testing"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

const eps = 1e-9

func tiny(Item) Size { return Size{W: 1, H: 1} }

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestRingRadii(t *testing.T) {
	tests := []struct {
		name      string
		box       domain.BoundingBox
		wantShape float64
		wantCX    float64
		wantCY    float64
	}{
		{"square", domain.BoundingBox{X1: 100, Y1: 100, X2: 200, Y2: 200}, 50, 150, 150},
		{"wide", domain.BoundingBox{X1: 0, Y1: 0, X2: 300, Y2: 100}, 150, 150, 50},
		{"tall", domain.BoundingBox{X1: 10, Y1: 0, X2: 50, Y2: 400}, 200, 30, 200},
		{"inverted corners", domain.BoundingBox{X1: 200, Y1: 200, X2: 100, Y2: 100}, 50, 150, 150},
		{"degenerate", domain.BoundingBox{X1: 5, Y1: 5, X2: 5, Y2: 5}, 0, 5, 5},
	}

	opts := DefaultOptions()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := LayoutRing(tt.box, "apple", nil, nil, opts)
			if r.ShapeRadius != tt.wantShape {
				t.Errorf("shape radius: expected %v, got %v", tt.wantShape, r.ShapeRadius)
			}
			w, h := tt.box.Width(), tt.box.Height()
			if r.RingRadius < math.Max(w, h)/2 {
				t.Errorf("ring radius %v smaller than half the largest side", r.RingRadius)
			}
			if r.RingRadius != tt.wantShape+opts.RingMargin {
				t.Errorf("ring radius: expected %v, got %v", tt.wantShape+opts.RingMargin, r.RingRadius)
			}
			if r.Center.X != tt.wantCX || r.Center.Y != tt.wantCY {
				t.Errorf("center: expected (%v,%v), got %+v", tt.wantCX, tt.wantCY, r.Center)
			}
			if r.Label.PathRadius != tt.wantShape || r.Label.Text != "apple" {
				t.Errorf("unexpected label %+v", r.Label)
			}
			if len(r.Items) != 0 {
				t.Errorf("expected no items, got %d", len(r.Items))
			}
		})
	}
}

func TestEvenDistributionAngles(t *testing.T) {
	for n := 1; n <= 9; n++ {
		angles := EvenDistribution().Angles(n)
		if len(angles) != n {
			t.Fatalf("n=%d: expected %d angles, got %d", n, n, len(angles))
		}
		for i, a := range angles {
			want := 360 / float64(n) * float64(i)
			if a != want {
				t.Errorf("n=%d i=%d: expected %v, got %v", n, i, want, a)
			}
		}
	}
	if EvenDistribution().Angles(0) != nil {
		t.Error("expected no angles for zero items")
	}
}

func TestFixedAnglesMatchTable(t *testing.T) {
	items := []Item{{"Calorías", "95 kcal"}, {"Fibra", "4 g"}, {"Calcio", "6 mg"}}
	opts := DefaultOptions()
	opts.Measure = tiny

	r := LayoutRing(domain.BoundingBox{X1: 100, Y1: 100, X2: 200, Y2: 200}, "apple", items, FixedAngles(NutritionAngles...), opts)
	if len(r.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(r.Items))
	}
	for i, p := range r.Items {
		if p.AngleDegrees != NutritionAngles[i] {
			t.Errorf("slot %d: expected %v, got %v", i, NutritionAngles[i], p.AngleDegrees)
		}
		if p.Label != items[i].Label || p.Value != items[i].Value {
			t.Errorf("slot %d: unexpected item %+v", i, p.AnnotationItem)
		}
	}

	// Angle 0 sits straight to the right at shape+offset.
	mid := r.Items[1].Center
	if !near(mid.X, 150+50+80) || !near(mid.Y, 150) {
		t.Errorf("expected (280,150), got %+v", mid)
	}
}

func TestFixedAnglesTooManyItemsFallsBack(t *testing.T) {
	got := FixedAngles(TemplateAngles...).Angles(4)
	want := EvenDistribution().Angles(4)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected even fallback %v, got %v", want, got)
		}
	}
}

func TestItemPositionsFollowPolar(t *testing.T) {
	items := []Item{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}}
	opts := DefaultOptions()
	opts.Measure = tiny

	box := domain.BoundingBox{X1: 0, Y1: 0, X2: 40, Y2: 40}
	r := LayoutRing(box, "kiwi", items, EvenDistribution(), opts)

	want := []Point{{20 + 100, 20}, {20, 20 + 100}, {20 - 100, 20}, {20, 20 - 100}}
	for i, p := range r.Items {
		if math.Abs(p.Center.X-want[i].X) > 1e-6 || math.Abs(p.Center.Y-want[i].Y) > 1e-6 {
			t.Errorf("item %d: expected %+v, got %+v", i, want[i], p.Center)
		}
	}
}

func TestOverlapGrowsRadiusOnly(t *testing.T) {
	items := make([]Item, 8)
	for i := range items {
		items[i] = Item{Label: "nutriente", Value: "100"}
	}
	opts := DefaultOptions()
	opts.Measure = func(Item) Size { return Size{W: 100, H: 30} }

	box := domain.BoundingBox{X1: 0, Y1: 0, X2: 20, Y2: 20}
	r := LayoutRing(box, "grape", items, EvenDistribution(), opts)

	nominal := r.ShapeRadius + opts.InfoOffset
	if r.InfoRadius <= nominal {
		t.Fatalf("expected radius to grow past %v, got %v", nominal, r.InfoRadius)
	}

	diag := math.Hypot(100, 30)
	for i := range r.Items {
		j := (i + 1) % len(r.Items)
		if d := Distance(r.Items[i].Center, r.Items[j].Center); d+1e-6 < diag {
			t.Errorf("items %d and %d only %v apart, need %v", i, j, d, diag)
		}
	}

	angles := EvenDistribution().Angles(8)
	for i, p := range r.Items {
		if p.AngleDegrees != angles[i] {
			t.Errorf("item %d angle changed: %v", i, p.AngleDegrees)
		}
	}

	opts.AvoidOverlap = false
	r = LayoutRing(box, "grape", items, EvenDistribution(), opts)
	if r.InfoRadius != nominal {
		t.Fatalf("expected nominal radius %v with overlap avoidance off, got %v", nominal, r.InfoRadius)
	}
}

func TestPolicyFor(t *testing.T) {
	if PolicyFor(3, NutritionAngles).Even() {
		t.Error("expected fixed table for three items")
	}
	if !PolicyFor(5, NutritionAngles).Even() {
		t.Error("expected even distribution for five items")
	}
	if !PolicyFor(2, nil).Even() {
		t.Error("expected even distribution without a table")
	}
}

func TestMeasureItem(t *testing.T) {
	got := MeasureItem(Item{Label: "Fibra", Value: "4 g"})
	want := Size{W: 5*7 + 2*labelPadding, H: 2*13 + 2*labelPadding}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
