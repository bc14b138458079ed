// Package interact turns user input into changes of the running layout:
// dragging and pinning nodes, highlighting neighbourhoods, rebuilding the
// graph when the edge-weight threshold moves, and panning/zooming the view.
package interact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TFMV/topicweb/filter"
	"github.com/TFMV/topicweb/graph"
	"github.com/TFMV/topicweb/models"
	"github.com/TFMV/topicweb/physics"
	"go.uber.org/zap"
)

var (
	ErrNotStarted          = errors.New("controller not started")
	ErrClosed              = errors.New("controller closed")
	ErrUnknownNode         = errors.New("unknown node")
	ErrNotDragging         = errors.New("node is not being dragged")
	ErrThresholdOutOfRange = errors.New("threshold out of range")
)

const (
	// DragAlphaTarget keeps neighbours adjusting while a node is held
	DragAlphaTarget = 0.1

	// ResetAlpha is the heat restored by ResetView
	ResetAlpha = 0.3

	DefaultThresholdMin = 5.0
	DefaultThresholdMax = 30.0
)

// Options configures a Controller
type Options struct {
	Filter       filter.Options
	Physics      physics.Params
	ThresholdMin float64
	ThresholdMax float64
	TickInterval time.Duration

	// OnTick runs on the simulation goroutine after every step. It may call
	// View but must not call methods that rebuild the graph.
	OnTick physics.TickFunc

	// OnRebuild runs after a new snapshot has been installed
	OnRebuild func(s *graph.Snapshot)
}

// DefaultOptions returns the options of the keyword network widget
func DefaultOptions() Options {
	return Options{
		Filter:       filter.DefaultOptions(),
		Physics:      physics.DefaultParams(),
		ThresholdMin: DefaultThresholdMin,
		ThresholdMax: DefaultThresholdMax,
		TickInterval: physics.DefaultTickInterval,
	}
}

// View is a read-only copy of everything a renderer needs for one frame
type View struct {
	Generation string
	Threshold  float64
	Snapshot   *graph.Snapshot
	Bodies     []physics.Body
	Selected   string
	Highlight  map[string]bool
	Transform  Transform
	Alpha      float64
	Stable     bool
}

// Controller owns the current snapshot, its simulation and the runner that
// ticks it. Exactly one runner is alive at a time: a rebuild stops the old
// runner and waits for it before the new one starts.
type Controller struct {
	lifecycle sync.Mutex // serialises rebuilds and Close

	mu        sync.RWMutex
	ctx       context.Context
	opts      Options
	logger    *zap.Logger
	dataset   *models.Dataset
	threshold float64
	snapshot  *graph.Snapshot
	sim       *physics.Simulation
	runner    *physics.Runner
	selected  string
	highlight map[string]bool
	dragging  map[string]bool
	transform Transform
	closed    bool
}

// NewController creates a controller for a loaded dataset. Start builds the
// first graph.
func NewController(ds *models.Dataset, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ThresholdMin == 0 && opts.ThresholdMax == 0 {
		opts.ThresholdMin, opts.ThresholdMax = DefaultThresholdMin, DefaultThresholdMax
	}
	return &Controller{
		opts:      opts,
		logger:    logger,
		dataset:   ds,
		threshold: opts.Filter.MinEdgeWeight,
		dragging:  make(map[string]bool),
		transform: Identity(),
	}
}

// Start builds the initial snapshot and starts its simulation. Runners stop
// when ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.mu.Lock()
	c.ctx = ctx
	ds, threshold := c.dataset, c.threshold
	c.mu.Unlock()

	return c.rebuild(ds, threshold)
}

// rebuild replaces the snapshot and simulation. Callers hold lifecycle.
func (c *Controller) rebuild(ds *models.Dataset, threshold float64) error {
	c.mu.RLock()
	old, ctx := c.runner, c.ctx
	c.mu.RUnlock()

	if ctx == nil {
		return ErrNotStarted
	}
	if old != nil {
		old.Stop()
	}

	snap := filter.Apply(ds, c.opts.Filter.WithThreshold(threshold))
	sim := physics.New(snap, c.opts.Physics)
	runner := physics.NewRunner(sim, c.opts.TickInterval, c.opts.OnTick)

	c.mu.Lock()
	c.dataset = ds
	c.threshold = threshold
	c.snapshot = snap
	c.sim = sim
	c.runner = runner
	c.selected = ""
	c.highlight = nil
	c.dragging = make(map[string]bool)
	c.mu.Unlock()

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("starting simulation: %w", err)
	}

	c.logger.Info("Graph rebuilt",
		zap.String("generation", snap.Generation),
		zap.Float64("threshold", threshold),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)

	if c.opts.OnRebuild != nil {
		c.opts.OnRebuild(snap)
	}
	return nil
}

// SetThreshold discards the current graph and simulation and rebuilds both
// from the full dataset with a new minimum edge weight
func (c *Controller) SetThreshold(threshold float64) error {
	if threshold < c.opts.ThresholdMin || threshold > c.opts.ThresholdMax {
		return fmt.Errorf("%w: %g not in [%g, %g]", ErrThresholdOutOfRange, threshold, c.opts.ThresholdMin, c.opts.ThresholdMax)
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.mu.RLock()
	ds := c.dataset
	c.mu.RUnlock()

	return c.rebuild(ds, threshold)
}

// ReplaceDataset rebuilds the graph from a newly loaded dataset at the
// current threshold
func (c *Controller) ReplaceDataset(ds *models.Dataset) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.mu.RLock()
	threshold := c.threshold
	c.mu.RUnlock()

	return c.rebuild(ds, threshold)
}

// Threshold returns the minimum edge weight of the current snapshot
func (c *Controller) Threshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threshold
}

// ThresholdRange returns the accepted threshold bounds
func (c *Controller) ThresholdRange() (lo, hi float64) {
	return c.opts.ThresholdMin, c.opts.ThresholdMax
}

// Dataset returns the dataset the current snapshot was built from
func (c *Controller) Dataset() *models.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataset
}

func (c *Controller) active() (*physics.Simulation, *physics.Runner, error) {
	if c.closed {
		return nil, nil, ErrClosed
	}
	if c.sim == nil {
		return nil, nil, ErrNotStarted
	}
	return c.sim, c.runner, nil
}

func nodeError(err error) error {
	if errors.Is(err, physics.ErrUnknownBody) {
		return fmt.Errorf("%w: %v", ErrUnknownNode, err)
	}
	return err
}

// DragStart pins a node where it is and keeps the simulation warm
func (c *Controller) DragStart(id string) (physics.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sim, runner, err := c.active()
	if err != nil {
		return physics.Point{}, err
	}
	p, err := sim.PinInPlace(id)
	if err != nil {
		return physics.Point{}, nodeError(err)
	}
	if len(c.dragging) == 0 {
		sim.SetAlphaTarget(DragAlphaTarget)
	}
	c.dragging[id] = true
	runner.Wake()
	return p, nil
}

// DragMove moves the pin of a dragged node to p in world coordinates
func (c *Controller) DragMove(id string, p physics.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sim, _, err := c.active()
	if err != nil {
		return err
	}
	if !c.dragging[id] {
		return fmt.Errorf("%w: %s", ErrNotDragging, id)
	}
	return nodeError(sim.Pin(id, p))
}

// DragEnd releases a dragged node back to the forces at its pinned position
func (c *Controller) DragEnd(id string) (physics.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sim, _, err := c.active()
	if err != nil {
		return physics.Point{}, err
	}
	if !c.dragging[id] {
		return physics.Point{}, fmt.Errorf("%w: %s", ErrNotDragging, id)
	}
	if err := sim.Unpin(id); err != nil {
		return physics.Point{}, nodeError(err)
	}
	delete(c.dragging, id)
	if len(c.dragging) == 0 {
		sim.SetAlphaTarget(0)
	}
	p, _ := sim.Position(id)
	return p, nil
}

// Select highlights a node and its direct neighbours
func (c *Controller) Select(id string) (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, _, err := c.active(); err != nil {
		return nil, err
	}
	if !c.snapshot.Has(id) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	c.selected = id
	c.highlight = c.snapshot.Neighborhood(id)
	return copySet(c.highlight), nil
}

// ClearSelection removes any highlight
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = ""
	c.highlight = nil
}

// Pan shifts the view by screen pixels
func (c *Controller) Pan(dx, dy float64) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transform = c.transform.Translate(dx, dy)
	return c.transform
}

// Zoom scales the view around a screen point
func (c *Controller) Zoom(factor float64, anchor physics.Point) Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transform = c.transform.ScaleAt(factor, anchor)
	return c.transform
}

// ResetView restores the identity transform and reheats the simulation
func (c *Controller) ResetView() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sim, runner, err := c.active()
	if err != nil {
		return err
	}
	c.transform = Identity()
	sim.Reheat(ResetAlpha)
	runner.Wake()
	return nil
}

// ScreenToWorld converts a pointer position to layout coordinates
func (c *Controller) ScreenToWorld(p physics.Point) physics.Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transform.Invert(p)
}

// View returns a consistent copy of the current state
func (c *Controller) View() (View, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sim, _, err := c.active()
	if err != nil {
		return View{}, err
	}
	return View{
		Generation: c.snapshot.Generation,
		Threshold:  c.threshold,
		Snapshot:   c.snapshot,
		Bodies:     sim.Bodies(),
		Selected:   c.selected,
		Highlight:  copySet(c.highlight),
		Transform:  c.transform,
		Alpha:      sim.Alpha(),
		Stable:     sim.Stable(),
	}, nil
}

// Close stops the running simulation. The controller cannot be restarted.
func (c *Controller) Close() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	runner := c.runner
	c.closed = true
	c.mu.Unlock()

	if runner != nil {
		runner.Stop()
	}
}

func copySet(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
