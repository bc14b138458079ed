package physics

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunnerStarted is returned when Start is called on a running Runner
var ErrRunnerStarted = errors.New("runner already started")

// DefaultTickInterval matches a 60Hz display refresh
const DefaultTickInterval = time.Second / 60

// TickFunc is called after every step with the generation of the
// simulation that produced it
type TickFunc func(generation string, alpha float64, elapsed time.Duration)

// Runner drives one simulation on its own goroutine. While the simulation
// is stable the loop parks until Wake is called. Stop cancels the loop and
// waits for it to exit, so no tick is delivered after Stop returns.
type Runner struct {
	sim      *Simulation
	interval time.Duration
	onTick   TickFunc
	wake     chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner for sim. onTick may be nil.
func NewRunner(sim *Simulation, interval time.Duration, onTick TickFunc) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if onTick == nil {
		onTick = func(string, float64, time.Duration) {}
	}
	return &Runner{
		sim:      sim,
		interval: interval,
		onTick:   onTick,
		wake:     make(chan struct{}, 1),
	}
}

// Simulation returns the simulation driven by the runner
func (r *Runner) Simulation() *Simulation {
	return r.sim
}

// Start launches the tick loop. The loop ends when ctx is cancelled or
// Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		return ErrRunnerStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
	return nil
}

// Stop cancels the loop and blocks until it has exited. It is safe to call
// more than once and on a runner that was never started.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop goroutine is alive
func (r *Runner) Running() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Wake resumes a parked loop
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if r.sim.Stable() {
			select {
			case <-ctx.Done():
				return
			case <-r.wake:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-r.wake:
			continue
		case <-ticker.C:
		}

		start := time.Now()
		r.sim.Step()
		if ctx.Err() != nil {
			return
		}
		r.onTick(r.sim.Generation(), r.sim.Alpha(), time.Since(start))
	}
}
