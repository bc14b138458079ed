package physics

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/TFMV/topicweb/graph"
	"github.com/TFMV/topicweb/models"
	opensimplex "github.com/ojrac/opensimplex-go"
)

var (
	// ErrUnknownBody is returned when a node ID is not part of the simulation
	ErrUnknownBody = errors.New("node not in simulation")
)

const (
	initialRadius  = 10.0
	jitterScale    = 4.0
	noiseFrequency = 0.37
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Params holds the tuning of the force simulation
type Params struct {
	Width              float64 `yaml:"width" toml:"width" validate:"gt=0"`
	Height             float64 `yaml:"height" toml:"height" validate:"gt=0"`
	Seed               int64   `yaml:"seed" toml:"seed"`
	Alpha              float64 `yaml:"alpha" toml:"alpha" validate:"gte=0,lte=1"`
	AlphaMin           float64 `yaml:"alpha_min" toml:"alpha_min" validate:"gt=0,lt=1"`
	AlphaDecay         float64 `yaml:"alpha_decay" toml:"alpha_decay" validate:"gt=0,lt=1"`
	VelocityDecay      float64 `yaml:"velocity_decay" toml:"velocity_decay" validate:"gte=0,lte=1"`
	LinkDistance       float64 `yaml:"link_distance" toml:"link_distance" validate:"gt=0"`
	ChargeStrength     float64 `yaml:"charge_strength" toml:"charge_strength"`
	ChargeDistanceMax  float64 `yaml:"charge_distance_max" toml:"charge_distance_max" validate:"gt=0"`
	CenterStrength     float64 `yaml:"center_strength" toml:"center_strength" validate:"gte=0,lte=1"`
	CollideMargin      float64 `yaml:"collide_margin" toml:"collide_margin" validate:"gte=0"`
	CollideStrength    float64 `yaml:"collide_strength" toml:"collide_strength" validate:"gte=0,lte=1"`
	ClusterStrength    float64 `yaml:"cluster_strength" toml:"cluster_strength" validate:"gte=0"`
	ClusterRadiusRatio float64 `yaml:"cluster_radius_ratio" toml:"cluster_radius_ratio" validate:"gte=0,lte=1"`
}

// DefaultParams returns the tuning used by the keyword network
func DefaultParams() Params {
	return Params{
		Width:              1200,
		Height:             800,
		Seed:               1,
		Alpha:              1,
		AlphaMin:           0.001,
		AlphaDecay:         0.05,
		VelocityDecay:      0.6,
		LinkDistance:       100,
		ChargeStrength:     -150,
		ChargeDistanceMax:  250,
		CenterStrength:     0.05,
		CollideMargin:      15,
		CollideStrength:    0.8,
		ClusterStrength:    0.15,
		ClusterRadiusRatio: 0.25,
	}
}

// Simulation is a force-directed layout over one graph snapshot. It owns
// the position and velocity of every node for as long as it lives.
type Simulation struct {
	mu          sync.Mutex
	params      Params
	snapshot    *graph.Snapshot
	bodies      []Body
	forces      []Force
	centers     map[models.Category]Point
	alpha       float64
	alphaTarget float64
	iterations  int
}

// New creates a simulation with bodies placed on a seeded spiral around
// the canvas centre
func New(s *graph.Snapshot, p Params) *Simulation {
	rng := rand.New(rand.NewPCG(uint64(p.Seed), uint64(len(s.Nodes))))
	jiggle := func() float64 { return (rng.Float64() - 0.5) * 1e-6 }

	sim := &Simulation{
		params:   p,
		snapshot: s,
		bodies:   make([]Body, len(s.Nodes)),
		centers:  ClusterCenters(s.Categories(), p.Width, p.Height, p.ClusterRadiusRatio),
		alpha:    p.Alpha,
	}

	noise := opensimplex.New(p.Seed)
	cx, cy := p.Width/2, p.Height/2
	for i, node := range s.Nodes {
		r := initialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * initialAngle
		sim.bodies[i] = Body{
			ID:       node.ID,
			Category: node.Category,
			Radius:   node.Radius(),
			X:        cx + r*math.Cos(a) + noise.Eval2(float64(i)*noiseFrequency, 0)*jitterScale,
			Y:        cy + r*math.Sin(a) + noise.Eval2(0, float64(i)*noiseFrequency)*jitterScale,
		}
	}

	sim.forces = []Force{
		newLinkForce(s, p, jiggle),
		newManyBodyForce(p, jiggle),
		&CenterForce{center: Point{X: cx, Y: cy}, strength: p.CenterStrength},
		&CollideForce{margin: p.CollideMargin, strength: p.CollideStrength, jiggle: jiggle},
		&ClusterForce{centers: sim.centers, strength: p.ClusterStrength},
	}

	return sim
}

// Generation returns the ID of the snapshot being laid out
func (sim *Simulation) Generation() string {
	return sim.snapshot.Generation
}

// Snapshot returns the graph being laid out
func (sim *Simulation) Snapshot() *graph.Snapshot {
	return sim.snapshot
}

// Step advances the simulation by one tick. It returns true when the
// simulation has cooled below AlphaMin and is stable.
func (sim *Simulation) Step() bool {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	sim.alpha += (sim.alphaTarget - sim.alpha) * sim.params.AlphaDecay

	for _, f := range sim.forces {
		f.Apply(sim.bodies, sim.alpha)
	}

	keep := 1 - sim.params.VelocityDecay
	for i := range sim.bodies {
		b := &sim.bodies[i]
		if b.Pinned() {
			b.X, b.Y = *b.FX, *b.FY
			b.VX, b.VY = 0, 0
			continue
		}
		b.VX *= keep
		b.VY *= keep
		b.X += b.VX
		b.Y += b.VY
	}

	sim.iterations++
	return sim.stableLocked()
}

// Stable reports whether the simulation has nothing left to do
func (sim *Simulation) Stable() bool {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.stableLocked()
}

func (sim *Simulation) stableLocked() bool {
	return sim.alpha < sim.params.AlphaMin && sim.alphaTarget < sim.params.AlphaMin
}

// Settle steps until stable or maxIterations is reached and returns the
// number of steps taken
func (sim *Simulation) Settle(maxIterations int) int {
	steps := 0
	for steps < maxIterations {
		steps++
		if sim.Step() {
			break
		}
	}
	return steps
}

// Alpha returns the current heat of the simulation
func (sim *Simulation) Alpha() float64 {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.alpha
}

// Iterations returns the number of steps taken so far
func (sim *Simulation) Iterations() int {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.iterations
}

// Reheat sets alpha so the layout resumes moving
func (sim *Simulation) Reheat(alpha float64) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.alpha = alpha
}

// SetAlphaTarget sets the value alpha decays toward. A non-zero target
// keeps the simulation warm, e.g. while a node is dragged.
func (sim *Simulation) SetAlphaTarget(target float64) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.alphaTarget = target
}

// Pin fixes a body at p until Unpin is called
func (sim *Simulation) Pin(id string, p Point) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	b, err := sim.bodyLocked(id)
	if err != nil {
		return err
	}
	x, y := p.X, p.Y
	b.FX, b.FY = &x, &y
	return nil
}

// PinInPlace fixes a body at its current position
func (sim *Simulation) PinInPlace(id string) (Point, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	b, err := sim.bodyLocked(id)
	if err != nil {
		return Point{}, err
	}
	x, y := b.X, b.Y
	b.FX, b.FY = &x, &y
	return Point{X: x, Y: y}, nil
}

// Unpin releases a body back to the forces. The body keeps the pinned
// position and starts from rest.
func (sim *Simulation) Unpin(id string) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	b, err := sim.bodyLocked(id)
	if err != nil {
		return err
	}
	if b.Pinned() {
		b.X, b.Y = *b.FX, *b.FY
	}
	b.VX, b.VY = 0, 0
	b.FX, b.FY = nil, nil
	return nil
}

func (sim *Simulation) bodyLocked(id string) (*Body, error) {
	i, ok := sim.snapshot.IndexOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	return &sim.bodies[i], nil
}

// Position returns the current position of a body
func (sim *Simulation) Position(id string) (Point, bool) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	b, err := sim.bodyLocked(id)
	if err != nil {
		return Point{}, false
	}
	return Point{X: b.X, Y: b.Y}, true
}

// Bodies returns a copy of all bodies
func (sim *Simulation) Bodies() []Body {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	out := make([]Body, len(sim.bodies))
	for i, b := range sim.bodies {
		if b.Pinned() {
			fx, fy := *b.FX, *b.FY
			b.FX, b.FY = &fx, &fy
		}
		out[i] = b
	}
	return out
}

// ClusterCenters returns the category anchors used by the cluster force
func (sim *Simulation) ClusterCenters() map[models.Category]Point {
	out := make(map[models.Category]Point, len(sim.centers))
	for k, v := range sim.centers {
		out[k] = v
	}
	return out
}

// Forces returns the names of the active forces in application order
func (sim *Simulation) Forces() []string {
	names := make([]string, len(sim.forces))
	for i, f := range sim.forces {
		names[i] = f.Name()
	}
	return names
}
