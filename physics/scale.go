package physics

// LinearScale maps a numeric domain onto a range. When the domain collapses
// to a single value every input maps to the middle of the range, so callers
// never divide by zero on graphs with one distinct edge weight or none.
type LinearScale struct {
	d0, d1 float64
	r0, r1 float64
}

// NewLinearScale creates a scale from [d0, d1] to [r0, r1]
func NewLinearScale(d0, d1, r0, r1 float64) LinearScale {
	return LinearScale{d0: d0, d1: d1, r0: r0, r1: r1}
}

// Degenerate reports whether the domain has zero width
func (s LinearScale) Degenerate() bool {
	return s.d1 == s.d0
}

// Normalize returns the position of v within the domain, 0 at d0 and 1 at d1
func (s LinearScale) Normalize(v float64) float64 {
	if s.Degenerate() {
		return 0.5
	}
	return (v - s.d0) / (s.d1 - s.d0)
}

// Map projects v onto the range
func (s LinearScale) Map(v float64) float64 {
	return s.r0 + s.Normalize(v)*(s.r1-s.r0)
}
