// Package layout places annotation labels around a detected region.
//
// Every function here is pure: the same box and items always produce
// the same positions. All coordinates share the input box's space
// (camera pixels, origin top-left, y pointing down) and every returned
// position is a center, not a top-left corner.
package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/hammamikhairi/foodlens/internal/domain"
)

// Point is a position in camera pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func pointOf(v r2.Vec) Point { return Point{X: v.X, Y: v.Y} }

// Item is a label/value pair to place around the ring.
type Item struct {
	Label string
	Value string
}

// CurvedLabel describes the detection name drawn along a circle.
type CurvedLabel struct {
	Text        string  `json:"text"`
	Center      Point   `json:"center"`
	PathRadius  float64 `json:"pathRadius"`
	StartOffset float64 `json:"startOffset"` // percent of the path length
}

// Placement is one positioned info item.
type Placement struct {
	domain.AnnotationItem
	Center Point `json:"center"`
	Size   Size  `json:"size"`
}

// Ring is the full layout for one detection.
type Ring struct {
	Center      Point       `json:"center"`
	ShapeRadius float64     `json:"shapeRadius"`
	RingRadius  float64     `json:"ringRadius"`
	InfoRadius  float64     `json:"infoRadius"`
	Label       CurvedLabel `json:"label"`
	Items       []Placement `json:"items"`
}

// Options holds the presentation constants.
type Options struct {
	// RingMargin is added to the shape radius to get the ring radius.
	RingMargin float64
	// InfoOffset is added to the shape radius to get the info radius.
	InfoOffset float64
	// LabelStartOffset positions the curved name along its path, in percent.
	LabelStartOffset float64
	// AvoidOverlap grows the info radius under even distribution when
	// neighbouring labels would collide. Angles never change.
	AvoidOverlap bool
	// Measure returns the rendered extent of an item. Nil uses MeasureItem.
	Measure func(Item) Size
}

// DefaultOptions returns the live presentation constants.
func DefaultOptions() Options {
	return Options{
		RingMargin:       20,
		InfoOffset:       80,
		LabelStartOffset: 50,
		AvoidOverlap:     true,
	}
}

// LayoutRing computes the ring, the curved name label and the info item
// positions for one detection.
func LayoutRing(box domain.BoundingBox, name string, items []Item, policy Policy, opts Options) Ring {
	box = box.Normalize()
	cx, cy := box.Center()
	center := r2.Vec{X: cx, Y: cy}

	shape := math.Max(box.Width(), box.Height()) / 2
	ring := Ring{
		Center:      pointOf(center),
		ShapeRadius: shape,
		RingRadius:  shape + opts.RingMargin,
		InfoRadius:  shape + opts.InfoOffset,
		Label: CurvedLabel{
			Text:        name,
			Center:      pointOf(center),
			PathRadius:  shape,
			StartOffset: opts.LabelStartOffset,
		},
	}
	if len(items) == 0 {
		return ring
	}
	if policy == nil {
		policy = EvenDistribution()
	}

	measure := opts.Measure
	if measure == nil {
		measure = MeasureItem
	}
	sizes := make([]Size, len(items))
	for i, it := range items {
		sizes[i] = measure(it)
	}

	angles := policy.Angles(len(items))
	if opts.AvoidOverlap && policy.Even() {
		ring.InfoRadius = math.Max(ring.InfoRadius, minEvenRadius(sizes))
	}

	ring.Items = make([]Placement, len(items))
	for i, it := range items {
		ring.Items[i] = Placement{
			AnnotationItem: domain.AnnotationItem{
				Label:        it.Label,
				Value:        it.Value,
				AngleDegrees: angles[i],
			},
			Center: pointOf(polar(center, ring.InfoRadius, angles[i])),
			Size:   sizes[i],
		}
	}
	return ring
}

// polar returns center + r·(cos θ, sin θ) for θ in degrees.
func polar(center r2.Vec, r, deg float64) r2.Vec {
	rad := deg * math.Pi / 180
	return r2.Add(center, r2.Scale(r, r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}))
}

// minEvenRadius is the smallest radius at which N evenly spaced boxes of
// the given sizes cannot overlap: adjacent centers must be at least one
// box diagonal apart.
func minEvenRadius(sizes []Size) float64 {
	n := len(sizes)
	if n < 2 {
		return 0
	}
	var diag float64
	for _, s := range sizes {
		diag = math.Max(diag, math.Hypot(s.W, s.H))
	}
	return diag / (2 * math.Sin(math.Pi/float64(n)))
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(r2.Vec{X: a.X, Y: a.Y}, r2.Vec{X: b.X, Y: b.Y}))
}
