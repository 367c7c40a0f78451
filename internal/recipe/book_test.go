package recipe

import (
	"errors"
	"testing"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

func threeRecipes() []domain.Recipe {
	return []domain.Recipe{
		{Title: "Ensalada de manzana"},
		{Title: "Tarta de manzana"},
		{Title: "Compota"},
	}
}

func TestBookWraps(t *testing.T) {
	b := NewBook()
	b.Replace(threeRecipes())

	if got := b.Previous(); got != 2 {
		t.Fatalf("previous at 0 with 3 recipes: expected 2, got %d", got)
	}
	if got := b.Next(); got != 0 {
		t.Fatalf("next at 2 with 3 recipes: expected 0, got %d", got)
	}

	tests := []struct {
		move func() int
		want int
	}{
		{b.Next, 1},
		{b.Next, 2},
		{b.Next, 0},
		{b.Previous, 2},
		{b.Previous, 1},
	}
	for i, tt := range tests {
		if got := tt.move(); got != tt.want {
			t.Fatalf("move %d: expected %d, got %d", i, tt.want, got)
		}
	}

	r, ok := b.Current()
	if !ok || r.Title != "Tarta de manzana" {
		t.Fatalf("unexpected current recipe %+v (ok=%v)", r, ok)
	}
}

func TestBookEmpty(t *testing.T) {
	b := NewBook()
	if b.Next() != 0 || b.Previous() != 0 {
		t.Fatal("expected cursor to stay at 0 on an empty book")
	}
	if _, ok := b.Current(); ok {
		t.Fatal("expected no current recipe")
	}
}

func TestBookReplaceClamps(t *testing.T) {
	b := NewBook()
	b.Replace(threeRecipes())
	b.Next()
	b.Next()

	b.Replace(threeRecipes()[:2])
	if b.Index() != 0 {
		t.Fatalf("expected cursor clamped to 0, got %d", b.Index())
	}

	b.Next()
	b.Replace(threeRecipes())
	if b.Index() != 1 {
		t.Fatalf("expected cursor kept at 1, got %d", b.Index())
	}

	list := b.List()
	list[0].Title = "changed"
	if r, _ := b.Current(); r.Title == "changed" {
		t.Fatal("List leaked internal state")
	}
}

func TestErrorPlaceholder(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unreachable", domain.Unreachable(errors.New("dial tcp: refused"))},
		{"malformed", domain.Malformed(errors.New("unexpected token"))},
		{"other", errors.New("boom")},
	}
	seen := map[string]bool{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ErrorPlaceholder(tt.err)
			if r.Title != "Error" || r.Preparation == "" {
				t.Fatalf("unexpected placeholder %+v", r)
			}
			if seen[r.Preparation] {
				t.Fatalf("expected a distinct message for %s", tt.name)
			}
			seen[r.Preparation] = true
		})
	}
}
