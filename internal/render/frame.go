package render

import (
	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/layout"
)

// Frame is one complete overlay. Each frame replaces the previous one
// entirely; the surface keeps no state between frames.
type Frame struct {
	Version    uint64    `json:"version" msgpack:"version"`
	SessionID  string    `json:"sessionId" msgpack:"session_id"`
	Mode       Mode      `json:"mode" msgpack:"mode"`
	Overlays   []Overlay `json:"overlays" msgpack:"overlays"`
	Menu       Menu      `json:"menu" msgpack:"menu"`
	Transcript string    `json:"transcript" msgpack:"transcript"`
}

// Overlay is the ring, curved name and info labels of one detection.
type Overlay struct {
	Index int                `json:"index" msgpack:"index"`
	Name  string             `json:"name" msgpack:"name"`
	Box   domain.BoundingBox `json:"box" msgpack:"box"`
	Ring  layout.Ring        `json:"ring" msgpack:"ring"`
}

// Menu is the side panel.
type Menu struct {
	Open      bool           `json:"open" msgpack:"open"`
	Detecting bool           `json:"detecting" msgpack:"detecting"`
	NewInfo   bool           `json:"newInfo" msgpack:"new_info"`
	Names     []string       `json:"names" msgpack:"names"`
	Status    string         `json:"status" msgpack:"status"`
	Recipe    *RecipeView    `json:"recipe,omitempty" msgpack:"recipe,omitempty"`
	Notice    *domain.Recipe `json:"notice,omitempty" msgpack:"notice,omitempty"`
	User      string         `json:"user,omitempty" msgpack:"user,omitempty"`
	Register  *Registration  `json:"registration,omitempty" msgpack:"registration,omitempty"`
}

// RecipeView is the recipe under the cursor. Preparation is empty
// unless it is being shown.
type RecipeView struct {
	Index       int    `json:"index" msgpack:"index"`
	Count       int    `json:"count" msgpack:"count"`
	Title       string `json:"title" msgpack:"title"`
	Ingredients string `json:"ingredients" msgpack:"ingredients"`
	Preparation string `json:"preparation,omitempty" msgpack:"preparation,omitempty"`
}

// Registration mirrors the registration form while it is being filled.
type Registration struct {
	Name      string   `json:"name" msgpack:"name"`
	BirthDate string   `json:"birthDate" msgpack:"birth_date"`
	Cuisines  []string `json:"cuisines" msgpack:"cuisines"`
	Focus     string   `json:"focus" msgpack:"focus"`
}

// Menu status strings.
const (
	StatusLoading = "Cargando..."
	StatusLoaded  = "Carga completa"
)
