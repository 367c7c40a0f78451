// Package domain defines the core types and interfaces for the food lens.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"math"
	"time"
)

// BoundingBox is an axis-aligned box in camera pixel space.
// After Normalize, X2 >= X1 and Y2 >= Y1.
type BoundingBox struct {
	X1 float64 `json:"x1" msgpack:"x1"`
	Y1 float64 `json:"y1" msgpack:"y1"`
	X2 float64 `json:"x2" msgpack:"x2"`
	Y2 float64 `json:"y2" msgpack:"y2"`
}

// Normalize returns the box with its corners ordered.
func (b BoundingBox) Normalize() BoundingBox {
	if b.X2 < b.X1 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y2 < b.Y1 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}
	return b
}

// Width returns the horizontal extent.
func (b BoundingBox) Width() float64 { return math.Abs(b.X2 - b.X1) }

// Height returns the vertical extent.
func (b BoundingBox) Height() float64 { return math.Abs(b.Y2 - b.Y1) }

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (x, y float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// RawDetection is one item as returned by the detection service.
type RawDetection struct {
	Name        string      `json:"name"`
	Coordinates BoundingBox `json:"coordinates"`
}

// Detection is one recognised food item in the current frame.
//
// Identity is the Name: two detections from different frames are the
// same item iff their names are equal. Several instances of the same
// class therefore share one identity.
type Detection struct {
	Name      string            `json:"name" msgpack:"name"`
	Box       BoundingBox       `json:"coordinates" msgpack:"box"`
	Nutrition map[string]string `json:"nutrition,omitempty" msgpack:"nutrition,omitempty"`
}

// HasNutrition reports whether enrichment data is attached.
func (d Detection) HasNutrition() bool { return d.Nutrition != nil }

// Clone returns a deep copy of the detection.
func (d Detection) Clone() Detection {
	out := d
	if d.Nutrition != nil {
		out.Nutrition = make(map[string]string, len(d.Nutrition))
		for k, v := range d.Nutrition {
			out.Nutrition[k] = v
		}
	}
	return out
}

// CloneDetections deep-copies a detection slice. A nil input yields nil.
func CloneDetections(in []Detection) []Detection {
	if in == nil {
		return nil
	}
	out := make([]Detection, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}

// Nutrition field keys requested from the enrichment service.
const (
	FieldCalories = "calorias"
	FieldFiber    = "fibra"
	FieldCalcium  = "calcio"
)

// DefaultNutritionFields is the ordered set of fields every enriched
// detection carries.
var DefaultNutritionFields = []string{FieldCalories, FieldFiber, FieldCalcium}

// Unavailable marks a nutrition field the enrichment service did not
// return for a detection.
const Unavailable = "No disponible"

// AnnotationItem is one info label drawn around a detection.
type AnnotationItem struct {
	Label        string  `json:"label"`
	Value        string  `json:"value"`
	AngleDegrees float64 `json:"angle"`
}

// Frame is a single encoded camera image.
type Frame struct {
	ID         uint64
	Data       []byte // JPEG or PNG bytes
	MimeType   string
	CapturedAt time.Time
}
