package fusion

import (
	"reflect"
	"testing"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

func raw(name string, x1, y1, x2, y2 float64) domain.RawDetection {
	return domain.RawDetection{Name: name, Coordinates: domain.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}}
}

func TestMergeCarriesNutritionByName(t *testing.T) {
	s := New()
	s.current = []domain.Detection{
		{Name: "apple", Nutrition: map[string]string{domain.FieldCalories: "95 kcal"}},
	}

	out, changed := s.Merge([]domain.RawDetection{raw("apple", 100, 100, 200, 200)})
	if changed {
		t.Error("expected same size to leave sizeChanged false")
	}
	want := []domain.Detection{{
		Name:      "apple",
		Box:       domain.BoundingBox{X1: 100, Y1: 100, X2: 200, Y2: 200},
		Nutrition: map[string]string{domain.FieldCalories: "95 kcal"},
	}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("expected %+v, got %+v", want, out)
	}
}

func TestMergeTable(t *testing.T) {
	banana := map[string]string{domain.FieldCalories: "105 kcal"}
	apple := map[string]string{domain.FieldCalories: "95 kcal"}

	tests := []struct {
		name        string
		prev        []domain.Detection
		raw         []domain.RawDetection
		wantNut     map[string]map[string]string // name -> nutrition, nil = absent
		wantChanged bool
	}{
		{
			name:        "new name has no nutrition",
			prev:        []domain.Detection{{Name: "apple", Nutrition: apple}},
			raw:         []domain.RawDetection{raw("apple", 0, 0, 1, 1), raw("pear", 2, 2, 3, 3)},
			wantNut:     map[string]map[string]string{"apple": apple, "pear": nil},
			wantChanged: true,
		},
		{
			name:        "vanished detections are dropped",
			prev:        []domain.Detection{{Name: "apple", Nutrition: apple}, {Name: "banana", Nutrition: banana}},
			raw:         []domain.RawDetection{raw("banana", 0, 0, 1, 1)},
			wantNut:     map[string]map[string]string{"banana": banana},
			wantChanged: true,
		},
		{
			name:        "empty input clears the set",
			prev:        []domain.Detection{{Name: "apple", Nutrition: apple}},
			raw:         nil,
			wantNut:     map[string]map[string]string{},
			wantChanged: true,
		},
		{
			name:        "same size different names",
			prev:        []domain.Detection{{Name: "apple", Nutrition: apple}},
			raw:         []domain.RawDetection{raw("kiwi", 0, 0, 1, 1)},
			wantNut:     map[string]map[string]string{"kiwi": nil},
			wantChanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.current = tt.prev

			out, changed := s.Merge(tt.raw)
			if changed != tt.wantChanged {
				t.Errorf("sizeChanged: expected %v, got %v", tt.wantChanged, changed)
			}
			if len(out) != len(tt.wantNut) {
				t.Fatalf("expected %d detections, got %d", len(tt.wantNut), len(out))
			}
			for _, d := range out {
				want, ok := tt.wantNut[d.Name]
				if !ok {
					t.Fatalf("unexpected detection %q", d.Name)
				}
				if !reflect.DeepEqual(d.Nutrition, want) {
					t.Errorf("%s: expected nutrition %v, got %v", d.Name, want, d.Nutrition)
				}
			}
		})
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	s := New()
	input := []domain.RawDetection{raw("apple", 10, 10, 50, 50), raw("apple", 60, 10, 90, 50), raw("kiwi", 0, 0, 5, 5)}

	s.Merge(input)
	s.ApplyNutrition(map[string]map[string]string{"apple": {domain.FieldCalories: "95 kcal"}})
	once, _ := s.Merge(input)
	twice, changed := s.Merge(input)

	if changed {
		t.Error("second merge of the same input changed size")
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent:\n once=%+v\ntwice=%+v", once, twice)
	}
}

func TestMergeReturnsCopies(t *testing.T) {
	s := New()
	s.current = []domain.Detection{{Name: "apple", Nutrition: map[string]string{domain.FieldCalories: "95 kcal"}}}
	out, _ := s.Merge([]domain.RawDetection{raw("apple", 0, 0, 1, 1)})
	out[0].Nutrition[domain.FieldCalories] = "mutated"

	if got := s.Detections()[0].Nutrition[domain.FieldCalories]; got != "95 kcal" {
		t.Fatalf("store state leaked through Merge result: %q", got)
	}
}

func TestApplyNutrition(t *testing.T) {
	s := New()
	s.Merge([]domain.RawDetection{raw("Apple", 0, 0, 1, 1), raw("bread", 0, 0, 1, 1)})

	s.ApplyNutrition(map[string]map[string]string{
		"apple": {domain.FieldCalories: "95 kcal", domain.FieldFiber: "4 g"},
	})

	got := map[string]map[string]string{}
	for _, d := range s.Detections() {
		got[d.Name] = d.Nutrition
	}

	wantApple := map[string]string{
		domain.FieldCalories: "95 kcal",
		domain.FieldFiber:    "4 g",
		domain.FieldCalcium:  domain.Unavailable,
	}
	if !reflect.DeepEqual(got["Apple"], wantApple) {
		t.Errorf("Apple: expected %v, got %v", wantApple, got["Apple"])
	}

	wantBread := map[string]string{
		domain.FieldCalories: domain.Unavailable,
		domain.FieldFiber:    domain.Unavailable,
		domain.FieldCalcium:  domain.Unavailable,
	}
	if !reflect.DeepEqual(got["bread"], wantBread) {
		t.Errorf("bread: expected %v, got %v", wantBread, got["bread"])
	}
}

func TestProximityMatching(t *testing.T) {
	left := map[string]string{domain.FieldCalories: "left"}
	right := map[string]string{domain.FieldCalories: "right"}
	prev := []domain.Detection{
		{Name: "apple", Box: domain.BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, Nutrition: left},
		{Name: "apple", Box: domain.BoundingBox{X1: 100, Y1: 0, X2: 110, Y2: 10}, Nutrition: right},
	}
	// The right-hand apple is listed first this frame.
	input := []domain.RawDetection{raw("apple", 98, 0, 108, 10), raw("apple", 2, 0, 12, 10)}

	s := New(WithProximityMatching())
	s.current = prev
	out, _ := s.Merge(input)
	if out[0].Nutrition[domain.FieldCalories] != "right" || out[1].Nutrition[domain.FieldCalories] != "left" {
		t.Fatalf("expected nearest pairing, got %v / %v", out[0].Nutrition, out[1].Nutrition)
	}

	s = New()
	s.current = prev
	out, _ = s.Merge(input)
	if out[0].Nutrition[domain.FieldCalories] != "left" || out[1].Nutrition[domain.FieldCalories] != "left" {
		t.Fatalf("expected first-match pairing by name, got %v / %v", out[0].Nutrition, out[1].Nutrition)
	}
}

func TestProximityFallsBackWhenInstancesRunOut(t *testing.T) {
	s := New(WithProximityMatching())
	s.current = []domain.Detection{{Name: "egg", Nutrition: map[string]string{domain.FieldCalories: "70 kcal"}}}
	out, changed := s.Merge([]domain.RawDetection{raw("egg", 0, 0, 1, 1), raw("egg", 5, 5, 6, 6)})
	if !changed {
		t.Error("expected size change")
	}
	for i, d := range out {
		if d.Nutrition[domain.FieldCalories] != "70 kcal" {
			t.Errorf("instance %d lost nutrition: %v", i, d.Nutrition)
		}
	}
}

func TestNames(t *testing.T) {
	s := New()
	s.Merge([]domain.RawDetection{raw("apple", 0, 0, 1, 1), raw("kiwi", 0, 0, 1, 1), raw("apple", 0, 0, 1, 1)})
	if got := s.Names(); !reflect.DeepEqual(got, []string{"apple", "kiwi"}) {
		t.Fatalf("unexpected names %v", got)
	}
	s.Reset()
	if s.Len() != 0 || s.Names() != nil {
		t.Fatal("expected empty store after reset")
	}
}
