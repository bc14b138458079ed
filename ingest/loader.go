package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/TFMV/topicweb/models"
	"go.uber.org/zap"
)

// DefaultMaxBytes caps the size of a dataset document
const DefaultMaxBytes = 32 << 20

// Loader reads a dataset from a source. A failed load never returns a
// partial dataset and is not retried.
type Loader struct {
	source    Source
	processor DataProcessor
	maxBytes  int64
	logger    *zap.Logger
}

// NewLoader creates a loader for the given source
func NewLoader(source Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		source:    source,
		processor: NewJSONProcessor(false),
		maxBytes:  DefaultMaxBytes,
		logger:    logger,
	}
}

// WithProcessor replaces the JSON decoder
func (l *Loader) WithProcessor(p DataProcessor) *Loader {
	l.processor = p
	return l
}

// Source returns the location the loader reads from
func (l *Loader) Source() Source {
	return l.source
}

// Load fetches, decodes and validates the dataset
func (l *Loader) Load(ctx context.Context) (*models.Dataset, error) {
	start := time.Now()

	rc, err := l.source.Open(ctx)
	if err != nil {
		l.logger.Error("Dataset fetch failed",
			zap.String("source", l.source.String()),
			zap.Error(err),
		)
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFetch, l.source, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalid, l.maxBytes)
	}

	ds, err := l.processor.ProcessData(data)
	if err != nil {
		l.logger.Error("Dataset rejected",
			zap.String("source", l.source.String()),
			zap.String("processor", l.processor.GetName()),
			zap.Error(err),
		)
		return nil, err
	}
	ds.Source = l.source.String()

	l.logger.Info("Dataset loaded",
		zap.String("source", ds.Source),
		zap.Int("nodes", len(ds.Nodes)),
		zap.Int("edges", len(ds.Edges)),
		zap.Duration("duration", time.Since(start)),
	)
	return ds, nil
}
