package interact

import (
	"fmt"
	"math"

	"github.com/TFMV/topicweb/physics"
)

const (
	MinZoom = 0.3
	MaxZoom = 3.0
)

// Transform is the pan/zoom applied to the render layer. It never touches
// physics coordinates.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity returns the transform that leaves coordinates unchanged
func Identity() Transform {
	return Transform{K: 1}
}

// Apply maps a world point to screen coordinates
func (t Transform) Apply(p physics.Point) physics.Point {
	return physics.Point{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen point back to world coordinates
func (t Transform) Invert(p physics.Point) physics.Point {
	return physics.Point{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// Translate shifts the view by dx, dy screen pixels
func (t Transform) Translate(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// ScaleAt multiplies the zoom by factor while keeping the screen point
// anchor fixed. The resulting scale is clamped to [MinZoom, MaxZoom].
func (t Transform) ScaleAt(factor float64, anchor physics.Point) Transform {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return t
	}
	k := math.Max(MinZoom, math.Min(MaxZoom, t.K*factor))
	world := t.Invert(anchor)
	return Transform{
		X: anchor.X - world.X*k,
		Y: anchor.Y - world.Y*k,
		K: k,
	}
}

// String renders the transform the way an SVG transform attribute expects
func (t Transform) String() string {
	return fmt.Sprintf("translate(%g,%g) scale(%g)", t.X, t.Y, t.K)
}
