package layout

// Policy decides the angle of each info item.
type Policy interface {
	// Angles returns n angles in degrees.
	Angles(n int) []float64
	// Even reports whether angles are spread evenly around the circle.
	Even() bool
}

// Declared angle tables.
var (
	// NutritionAngles places calorias, fibra and calcio to the right of the ring.
	NutritionAngles = []float64{-45, 0, 45}
	// TemplateAngles places the legacy placeholder items above-right.
	TemplateAngles = []float64{-50, -30, -10}
)

type fixedAngles struct {
	table []float64
}

// FixedAngles returns a policy that reads angles from table, slot by
// slot. When more items than slots are requested the whole set falls
// back to even distribution.
func FixedAngles(table ...float64) Policy {
	t := make([]float64, len(table))
	copy(t, table)
	return fixedAngles{table: t}
}

func (f fixedAngles) Angles(n int) []float64 {
	if n > len(f.table) {
		return evenDistribution{}.Angles(n)
	}
	out := make([]float64, n)
	copy(out, f.table[:n])
	return out
}

func (f fixedAngles) Even() bool { return false }

type evenDistribution struct{}

// EvenDistribution returns a policy placing item i at 360/N·i degrees.
func EvenDistribution() Policy { return evenDistribution{} }

func (evenDistribution) Angles(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	step := 360 / float64(n)
	for i := range out {
		out[i] = step * float64(i)
	}
	return out
}

func (evenDistribution) Even() bool { return true }

// PolicyFor picks the fixed table when it has a slot for every item and
// even distribution otherwise.
func PolicyFor(n int, table []float64) Policy {
	if len(table) > 0 && n <= len(table) {
		return FixedAngles(table...)
	}
	return EvenDistribution()
}
