package layout

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Size is the rendered extent of a label in pixels.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// labelPadding is added on every side of a measured label.
const labelPadding = 4

// MeasureItem measures a two-line info label (label above value) with
// the fixed 7x13 bitmap face.
func MeasureItem(it Item) Size {
	return MeasureLines(basicfont.Face7x13, it.Label, it.Value)
}

// MeasureLines returns the box needed to draw lines stacked with face.
func MeasureLines(face font.Face, lines ...string) Size {
	if len(lines) == 0 {
		return Size{}
	}
	var w int
	for _, l := range lines {
		if lw := font.MeasureString(face, l).Ceil(); lw > w {
			w = lw
		}
	}
	h := face.Metrics().Height.Ceil() * len(lines)
	return Size{
		W: float64(w + 2*labelPadding),
		H: float64(h + 2*labelPadding),
	}
}
