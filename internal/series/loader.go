// Package series validates an ordered batch of observations before a
// crossover evaluation runs over it.
package series

import (
	"errors"
	"fmt"
	"math"
	"time"

	"MACrossover/internal/model"
)

var (
	// ErrInvalidWindowConfig is returned when the window pair violates 0 < short < long.
	ErrInvalidWindowConfig = model.ErrInvalidWindowConfig
	// ErrInsufficientData is returned when the series is shorter than the long window.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidObservation is returned for non-positive closes or out-of-order timestamps.
	ErrInvalidObservation = model.ErrInvalidObservation
)

// Series is an immutable, validated, timestamp-ascending sequence of closes.
type Series struct {
	times  []time.Time
	closes []float64
	window model.WindowConfig
}

// Load validates observations against the window config and returns a Series
// holding its own copy of the data. Observations must already be sorted
// ascending by timestamp; Load does not reorder them.
func Load(observations []model.Observation, window model.WindowConfig) (*Series, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if len(observations) < window.Long {
		return nil, fmt.Errorf("%w: need at least %d records, got %d", ErrInsufficientData, window.Long, len(observations))
	}

	s := &Series{
		times:  make([]time.Time, len(observations)),
		closes: make([]float64, len(observations)),
		window: window,
	}
	for i, o := range observations {
		if math.IsNaN(o.Close) || math.IsInf(o.Close, 0) || o.Close <= 0 {
			return nil, fmt.Errorf("%w: close at index %d must be positive, got %v", ErrInvalidObservation, i, o.Close)
		}
		if i > 0 && !o.Time.After(observations[i-1].Time) {
			return nil, fmt.Errorf("%w: timestamp at index %d (%s) is not after %s",
				ErrInvalidObservation, i, o.Time.Format(time.RFC3339), observations[i-1].Time.Format(time.RFC3339))
		}
		s.times[i] = o.Time
		s.closes[i] = o.Close
	}
	return s, nil
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.closes) }

// Window returns the window config the series was validated against.
func (s *Series) Window() model.WindowConfig { return s.window }

// Closes returns a copy of the closing prices.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.closes))
	copy(out, s.closes)
	return out
}

// Time returns the timestamp at index i.
func (s *Series) Time(i int) time.Time { return s.times[i] }

// Close returns the closing price at index i.
func (s *Series) Close(i int) float64 { return s.closes[i] }
