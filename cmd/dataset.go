package cmd

import (
	"context"
	"fmt"

	"github.com/TFMV/topicweb/config"
	"github.com/TFMV/topicweb/filter"
	"github.com/TFMV/topicweb/ingest"
	"github.com/TFMV/topicweb/interact"
	"github.com/TFMV/topicweb/models"
	"github.com/TFMV/topicweb/physics"
	"go.uber.org/zap"
)

func newLoader(cfg *config.Config, logger *zap.Logger) (*ingest.Loader, error) {
	source, err := ingest.ParseSource(cfg.Dataset.Source)
	if err != nil {
		return nil, err
	}
	loader := ingest.NewLoader(source, logger.Named("ingest"))
	return loader.WithProcessor(ingest.NewJSONProcessor(cfg.Dataset.Strict)), nil
}

func loadDataset(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*models.Dataset, error) {
	loader, err := newLoader(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Dataset.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Dataset.Timeout)
		defer cancel()
	}
	return loader.Load(ctx)
}

// settle filters ds at threshold and runs the layout to rest, or for at
// most iterations steps, without a runner
func settle(ds *models.Dataset, cfg *config.Config, threshold float64, iterations int, selected string, logger *zap.Logger) (interact.View, error) {
	lo, hi := cfg.Interaction.ThresholdMin, cfg.Interaction.ThresholdMax
	if threshold < lo || threshold > hi {
		return interact.View{}, fmt.Errorf("%w: %g not in [%g, %g]", interact.ErrThresholdOutOfRange, threshold, lo, hi)
	}

	snap := filter.Apply(ds, cfg.Filter.WithThreshold(threshold))
	if selected != "" && !snap.Has(selected) {
		if _, ok := ds.FindNodeByID(selected); ok {
			return interact.View{}, fmt.Errorf("%w: %q is filtered out", interact.ErrUnknownNode, selected)
		}
		return interact.View{}, fmt.Errorf("%w: %q", interact.ErrUnknownNode, selected)
	}

	sim := physics.New(snap, cfg.Physics)
	sim.Settle(iterations)
	logger.Debug("Layout settled",
		zap.String("generation", snap.Generation),
		zap.Int("iterations", sim.Iterations()),
		zap.Float64("alpha", sim.Alpha()),
	)

	view := interact.View{
		Generation: snap.Generation,
		Threshold:  threshold,
		Snapshot:   snap,
		Bodies:     sim.Bodies(),
		Transform:  interact.Identity(),
		Alpha:      sim.Alpha(),
		Stable:     sim.Stable(),
	}
	if selected != "" {
		view.Selected = selected
		view.Highlight = snap.Neighborhood(selected)
	}
	return view, nil
}
