package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidObservation is returned when an observation fails validation.
var ErrInvalidObservation = errors.New("invalid observation")

// Observation is a single daily price/volume bar for one instrument.
type Observation struct {
	Time       time.Time `json:"datetime"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	Instrument string    `json:"instrument"`
}

// Validate checks the OHLC invariants enforced at the ingestion boundary.
func (o Observation) Validate() error {
	if o.Time.IsZero() {
		return fmt.Errorf("%w: datetime is required", ErrInvalidObservation)
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{"open", o.Open},
		{"high", o.High},
		{"low", o.Low},
		{"close", o.Close},
	} {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return fmt.Errorf("%w: %s price must be positive, got %v", ErrInvalidObservation, p.name, p.value)
		}
	}
	if o.Volume < 0 {
		return fmt.Errorf("%w: volume must be non-negative, got %d", ErrInvalidObservation, o.Volume)
	}
	if o.High < o.Low || o.High < o.Open || o.High < o.Close {
		return fmt.Errorf("%w: high must be greater than or equal to open, low and close", ErrInvalidObservation)
	}
	if o.Low > o.Open || o.Low > o.Close {
		return fmt.Errorf("%w: low must be less than or equal to open and close", ErrInvalidObservation)
	}
	if strings.TrimSpace(o.Instrument) == "" {
		return fmt.Errorf("%w: instrument is required", ErrInvalidObservation)
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp accepts the datetime layouts produced by common exports.
// Timestamps without a zone are interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised datetime %q", ErrInvalidObservation, s)
}

// TimestampLayout is the layout used when rendering observation times.
const TimestampLayout = "2006-01-02T15:04:05"
