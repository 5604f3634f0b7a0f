package collector

import (
	"context"

	"MACrossover/internal/model"
)

// Row is one parsed input row. Err is set when the row could not be turned
// into an observation.
type Row struct {
	Line        int
	Observation model.Observation
	Err         error
}

// Source produces observations for bulk ingestion.
type Source interface {
	Fetch(ctx context.Context) ([]Row, error)
	Name() string
}

// Sink receives validated observations in batches.
type Sink interface {
	AppendBatch(ctx context.Context, obs []model.Observation) (int, error)
}
