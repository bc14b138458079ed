package physics

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLinearScaleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("domain values map inside the range", prop.ForAll(
		func(lo, width, frac float64) bool {
			s := NewLinearScale(lo, lo+width, 1, 8)
			v := s.Map(lo + frac*width)
			return v >= 1-1e-9 && v <= 8+1e-9
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0.001, 100),
		gen.Float64Range(0, 1),
	))

	properties.Property("a collapsed domain maps to the midpoint", prop.ForAll(
		func(d, v float64) bool {
			return math.Abs(NewLinearScale(d, d, 0.15, 0.6).Map(v)-0.375) < 1e-12
		},
		gen.Float64Range(-50, 50),
		gen.Float64Range(-50, 50),
	))

	properties.TestingRun(t)
}
