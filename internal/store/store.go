// Package store persists observations and evaluation runs. It is the storage
// collaborator of the crossover evaluator: it appends records and returns them
// ordered by time.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MACrossover/internal/model"
)

// ErrDuplicate is returned when an observation for the same instrument and
// timestamp already exists.
var ErrDuplicate = errors.New("duplicate observation")

// Record is a stored observation with its row id.
type Record struct {
	ID int64 `json:"id"`
	model.Observation
}

// EvaluationRecord is one persisted strategy evaluation.
type EvaluationRecord struct {
	ID           string                   `json:"id"`
	CreatedAt    time.Time                `json:"created_at"`
	Instrument   string                   `json:"instrument"`
	Observations int                      `json:"observations"`
	Summary      model.PerformanceSummary `json:"summary"`
}

// Store is the persistence collaborator.
type Store interface {
	// Append validates and stores a single observation.
	Append(ctx context.Context, obs model.Observation) (Record, error)
	// AppendBatch stores all observations atomically and returns how many were added.
	AppendBatch(ctx context.Context, obs []model.Observation) (int, error)
	// List returns records in insertion order, skipping skip and returning at most limit.
	List(ctx context.Context, skip, limit int) ([]Record, error)
	// Series returns observations ordered ascending by timestamp. An empty
	// instrument returns every stored observation.
	Series(ctx context.Context, instrument string) ([]model.Observation, error)
	// Count returns the number of stored observations.
	Count(ctx context.Context) (int, error)
	// DeleteAll removes every observation and returns how many were deleted.
	DeleteAll(ctx context.Context) (int64, error)

	RecordEvaluation(ctx context.Context, rec *EvaluationRecord) error
	// ListEvaluations returns the most recent evaluations first.
	ListEvaluations(ctx context.Context, limit int) ([]EvaluationRecord, error)

	Close() error
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Open returns a Store for the given driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		return NewSQLStore(driver, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func validateAll(obs []model.Observation) error {
	for i, o := range obs {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}
