package physics

import (
	"math"

	"github.com/TFMV/topicweb/graph"
	"github.com/TFMV/topicweb/models"
)

// Body is the mutable simulation state of one node
type Body struct {
	ID       string
	Category models.Category
	Radius   float64
	X, Y     float64
	VX, VY   float64
	FX, FY   *float64 // pinned position, nil when free
}

// Pinned reports whether the body position is fixed
func (b *Body) Pinned() bool {
	return b.FX != nil && b.FY != nil
}

// Force adds to body velocities once per simulation step
type Force interface {
	Name() string
	Apply(bodies []Body, alpha float64)
}

// jiggler returns a tiny random offset used to separate coincident bodies
type jiggler func() float64

type link struct {
	source, target int
	distance       float64
	strength       float64
	bias           float64
}

// LinkForce pulls connected bodies toward a rest distance that shrinks as
// the co-occurrence weight grows
type LinkForce struct {
	links  []link
	jiggle jiggler
}

func newLinkForce(s *graph.Snapshot, p Params, jiggle jiggler) *LinkForce {
	f := &LinkForce{jiggle: jiggle}

	lo, hi, ok := s.WeightExtent()
	if !ok {
		return f
	}
	scale := NewLinearScale(lo, hi, 0, 1)

	for _, e := range s.Edges {
		si, _ := s.IndexOf(e.Source)
		ti, _ := s.IndexOf(e.Target)
		if si == ti {
			continue
		}
		ds, dt := float64(s.Degree(e.Source)), float64(s.Degree(e.Target))

		ratio := 1.0
		if hi > 0 {
			ratio = e.Weight / hi
		}

		f.links = append(f.links, link{
			source:   si,
			target:   ti,
			distance: p.LinkDistance * (0.5 + 0.5*(1-scale.Normalize(e.Weight))),
			strength: 0.3 + 0.5*ratio,
			bias:     ds / (ds + dt),
		})
	}
	return f
}

func (f *LinkForce) Name() string { return "link" }

func (f *LinkForce) Apply(bodies []Body, alpha float64) {
	for _, l := range f.links {
		src, tgt := &bodies[l.source], &bodies[l.target]

		x := tgt.X + tgt.VX - src.X - src.VX
		y := tgt.Y + tgt.VY - src.Y - src.VY
		if x == 0 {
			x = f.jiggle()
		}
		if y == 0 {
			y = f.jiggle()
		}

		d := math.Sqrt(x*x + y*y)
		d = (d - l.distance) / d * alpha * l.strength
		x *= d
		y *= d

		tgt.VX -= x * l.bias
		tgt.VY -= y * l.bias
		src.VX += x * (1 - l.bias)
		src.VY += y * (1 - l.bias)
	}
}

// ManyBodyForce makes every pair of bodies repel, ignoring pairs further
// apart than the maximum distance
type ManyBodyForce struct {
	strength float64
	distMin2 float64
	distMax2 float64
	jiggle   jiggler
}

func newManyBodyForce(p Params, jiggle jiggler) *ManyBodyForce {
	return &ManyBodyForce{
		strength: p.ChargeStrength,
		distMin2: 1,
		distMax2: p.ChargeDistanceMax * p.ChargeDistanceMax,
		jiggle:   jiggle,
	}
}

func (f *ManyBodyForce) Name() string { return "charge" }

func (f *ManyBodyForce) Apply(bodies []Body, alpha float64) {
	for i := range bodies {
		bi := &bodies[i]
		for j := i + 1; j < len(bodies); j++ {
			bj := &bodies[j]

			x := bj.X - bi.X
			y := bj.Y - bi.Y
			l := x*x + y*y
			if l >= f.distMax2 {
				continue
			}
			if x == 0 {
				x = f.jiggle()
				l += x * x
			}
			if y == 0 {
				y = f.jiggle()
				l += y * y
			}
			if l < f.distMin2 {
				l = math.Sqrt(f.distMin2 * l)
			}

			w := f.strength * alpha / l
			bi.VX += x * w
			bi.VY += y * w
			bj.VX -= x * w
			bj.VY -= y * w
		}
	}
}

// CenterForce nudges the centroid of all bodies toward the canvas centre.
// It does not scale with alpha.
type CenterForce struct {
	center   Point
	strength float64
}

func (f *CenterForce) Name() string { return "center" }

func (f *CenterForce) Apply(bodies []Body, _ float64) {
	if len(bodies) == 0 {
		return
	}

	var sx, sy float64
	for i := range bodies {
		sx += bodies[i].X
		sy += bodies[i].Y
	}
	n := float64(len(bodies))
	dx := (sx/n - f.center.X) * f.strength
	dy := (sy/n - f.center.Y) * f.strength

	for i := range bodies {
		bodies[i].VX -= dx
		bodies[i].VY -= dy
	}
}

// CollideForce keeps bodies at least their radius plus a margin apart
type CollideForce struct {
	margin   float64
	strength float64
	jiggle   jiggler
}

func (f *CollideForce) Name() string { return "collision" }

func (f *CollideForce) Apply(bodies []Body, _ float64) {
	for i := range bodies {
		bi := &bodies[i]
		ri := bi.Radius + f.margin
		ri2 := ri * ri
		xi := bi.X + bi.VX
		yi := bi.Y + bi.VY

		for j := i + 1; j < len(bodies); j++ {
			bj := &bodies[j]
			rj := bj.Radius + f.margin
			r := ri + rj

			x := xi - bj.X - bj.VX
			y := yi - bj.Y - bj.VY
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = f.jiggle()
				l += x * x
			}
			if y == 0 {
				y = f.jiggle()
				l += y * y
			}

			l = math.Sqrt(l)
			l = (r - l) / l * f.strength
			x *= l
			y *= l

			share := rj * rj / (ri2 + rj*rj)
			bi.VX += x * share
			bi.VY += y * share
			bj.VX -= x * (1 - share)
			bj.VY -= y * (1 - share)
		}
	}
}

// ClusterForce pulls each body toward the anchor of its category. Being
// scaled by alpha, it loosens as the layout cools.
type ClusterForce struct {
	centers  map[models.Category]Point
	strength float64
}

func (f *ClusterForce) Name() string { return "cluster" }

func (f *ClusterForce) Apply(bodies []Body, alpha float64) {
	k := f.strength * alpha
	for i := range bodies {
		b := &bodies[i]
		c, ok := f.centers[b.Category]
		if !ok {
			continue
		}
		b.VX -= (b.X - c.X) * k
		b.VY -= (b.Y - c.Y) * k
	}
}
