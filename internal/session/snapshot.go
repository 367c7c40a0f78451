package session

import (
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// Snapshot is an immutable view of the session at one version.
type Snapshot struct {
	Version      uint64              `json:"version"`
	SessionID    string              `json:"sessionId"`
	Flags        domain.Flags        `json:"flags"`
	Detections   []domain.Detection  `json:"detections"`
	Recipes      []domain.Recipe     `json:"recipes"`
	RecipeIndex  int                 `json:"recipeIndex"`
	Notice       *domain.Recipe      `json:"notice,omitempty"`
	Profile      *domain.UserProfile `json:"profile,omitempty"`
	Registration domain.Registration `json:"registration"`
	Transcript   string              `json:"transcript"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// CurrentRecipe returns the recipe under the cursor.
func (s Snapshot) CurrentRecipe() (domain.Recipe, bool) {
	if s.RecipeIndex < 0 || s.RecipeIndex >= len(s.Recipes) {
		return domain.Recipe{}, false
	}
	return s.Recipes[s.RecipeIndex], true
}

// Names returns the distinct detection names in order.
func (s Snapshot) Names() []string {
	seen := make(map[string]bool, len(s.Detections))
	var out []string
	for _, d := range s.Detections {
		if !seen[d.Name] {
			seen[d.Name] = true
			out = append(out, d.Name)
		}
	}
	return out
}
