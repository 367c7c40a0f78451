package session

import "github.com/hammamikhairi/foodlens/internal/domain"

// ShowRecipes marks the recipe list as ready to display.
func (s *Session) ShowRecipes() {
	s.update("show recipes", func() bool {
		if s.flags.Loaded {
			return false
		}
		s.flags.Loaded = true
		return true
	})
}

// NextRecipe advances the recipe cursor, wrapping at the end, and hides
// the preparation.
func (s *Session) NextRecipe() int {
	var idx int
	s.update("next recipe", func() bool {
		idx = s.book.Next()
		s.flags.ShowPreparation = false
		return true
	})
	return idx
}

// PreviousRecipe moves the recipe cursor back, wrapping at the start,
// and hides the preparation.
func (s *Session) PreviousRecipe() int {
	var idx int
	s.update("previous recipe", func() bool {
		idx = s.book.Previous()
		s.flags.ShowPreparation = false
		return true
	})
	return idx
}

// TogglePreparation shows or hides the current recipe's preparation.
func (s *Session) TogglePreparation() bool {
	var shown bool
	s.update("toggle preparation", func() bool {
		s.flags.ShowPreparation = !s.flags.ShowPreparation
		shown = s.flags.ShowPreparation
		return true
	})
	return shown
}

// CurrentRecipe returns the recipe under the cursor.
func (s *Session) CurrentRecipe() (domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.book.Current()
	if !ok {
		return domain.Recipe{}, domain.ErrNoRecipe
	}
	return r, nil
}
