// Package recipe keeps the recipe suggestions shown in the menu and the
// cursor the user moves through them.
package recipe

import (
	"github.com/hammamikhairi/foodlens/internal/domain"
)

// Book is an ordered recipe list with a wrapping cursor. It is not safe
// for concurrent use; the session container serializes access.
type Book struct {
	recipes []domain.Recipe
	index   int
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{}
}

// Replace swaps in a new list. The cursor stays where it was unless it
// would fall past the end, in which case it returns to 0.
func (b *Book) Replace(recipes []domain.Recipe) {
	b.recipes = append([]domain.Recipe(nil), recipes...)
	if b.index >= len(b.recipes) {
		b.index = 0
	}
}

// Next moves the cursor forward, wrapping to the first recipe.
func (b *Book) Next() int {
	if n := len(b.recipes); n > 0 {
		b.index = (b.index + 1) % n
	}
	return b.index
}

// Previous moves the cursor back, wrapping to the last recipe.
func (b *Book) Previous() int {
	if n := len(b.recipes); n > 0 {
		b.index = (b.index - 1 + n) % n
	}
	return b.index
}

// Current returns the recipe under the cursor.
func (b *Book) Current() (domain.Recipe, bool) {
	if len(b.recipes) == 0 {
		return domain.Recipe{}, false
	}
	return b.recipes[b.index], true
}

// Index returns the cursor position.
func (b *Book) Index() int { return b.index }

// Len returns the number of recipes.
func (b *Book) Len() int { return len(b.recipes) }

// List returns a copy of the recipes.
func (b *Book) List() []domain.Recipe {
	return append([]domain.Recipe(nil), b.recipes...)
}
