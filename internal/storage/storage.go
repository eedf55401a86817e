// Package storage persists harvested trend records: the JSON snapshot the
// scoring run consumes and an optional history archive.
package storage

import (
	"context"
	"time"

	"github.com/IshaanNene/TrendPulse/internal/types"
)

// Batch is one harvest run's output.
type Batch struct {
	RunID       string
	HarvestedAt time.Time
	Records     []types.TrendRecord
}

// Sink is the interface for all snapshot destinations.
type Sink interface {
	// Store persists a complete harvest batch.
	Store(ctx context.Context, batch Batch) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the sink identifier.
	Name() string
}
