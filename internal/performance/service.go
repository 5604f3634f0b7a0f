// Package performance is the calling layer around the crossover evaluator: it
// reads one snapshot from the store, validates and evaluates it, and keeps a
// history of runs.
package performance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"MACrossover/internal/model"
	"MACrossover/internal/series"
	"MACrossover/internal/store"
	"MACrossover/internal/strategy"
)

// Result is a summary together with the run metadata.
type Result struct {
	ID           string
	Instrument   string
	Observations int
	Summary      *model.PerformanceSummary
}

// Service evaluates stored observations.
type Service struct {
	Store store.Store
	// Now is overridable in tests.
	Now func() time.Time
}

// NewService creates a new Service.
func NewService(st store.Store) *Service {
	return &Service{Store: st, Now: time.Now}
}

// Evaluate runs the crossover strategy over the instrument's stored history.
// An empty instrument evaluates every stored observation as a single series.
func (s *Service) Evaluate(ctx context.Context, instrument string, window model.WindowConfig) (*Result, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	obs, err := s.Store.Series(ctx, instrument)
	if err != nil {
		return nil, fmt.Errorf("read observations: %w", err)
	}
	ser, err := series.Load(obs, window)
	if err != nil {
		return nil, err
	}
	summary, err := strategy.Evaluate(ser, window)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	res := &Result{
		ID:           uuid.NewString(),
		Instrument:   instrument,
		Observations: ser.Len(),
		Summary:      summary,
	}
	if err := s.Store.RecordEvaluation(ctx, &store.EvaluationRecord{
		ID:           res.ID,
		CreatedAt:    s.Now(),
		Instrument:   instrument,
		Observations: res.Observations,
		Summary:      *summary,
	}); err != nil {
		log.Printf("[ERROR] record evaluation: %v", err)
	}
	log.Printf("[INFO] evaluated %s over %d observations (%s): return=%.2f%% trades=%d",
		displayInstrument(instrument), res.Observations, window, summary.TotalReturnPct, summary.TradeCount)
	return res, nil
}

// History returns the most recent recorded evaluations.
func (s *Service) History(ctx context.Context, limit int) ([]store.EvaluationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.Store.ListEvaluations(ctx, limit)
}

func displayInstrument(instrument string) string {
	if instrument == "" {
		return "all instruments"
	}
	return instrument
}
