package strategy

import (
	"fmt"
	"time"

	"MACrossover/internal/calculator"
	"MACrossover/internal/model"
	"MACrossover/internal/series"
)

// SignalPoint is the per-index crossover state from the first index where
// both averages are defined.
type SignalPoint struct {
	Index   int
	Time    time.Time
	Close   float64
	ShortMA float64
	LongMA  float64
	Signal  model.Signal
	// Delta is Signal minus the previous Signal; HasDelta is false at the first point.
	Delta    int
	HasDelta bool
}

// signals returns the signal at every index of the series. Indices before the
// long window fills are flat. A tie between the two averages keeps the
// previous signal.
func signals(s *series.Series, w model.WindowConfig) ([]model.Signal, *calculator.MovingAverage, *calculator.MovingAverage, error) {
	closes := s.Closes()
	short, err := calculator.RollingSMA(closes, w.Short)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("short MA: %w", err)
	}
	long, err := calculator.RollingSMA(closes, w.Long)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("long MA: %w", err)
	}

	sig := make([]model.Signal, len(closes))
	prev := model.SignalFlat
	for i := w.Long - 1; i < len(closes); i++ {
		switch short.At(i).Cmp(long.At(i)) {
		case 1:
			sig[i] = model.SignalLong
		case -1:
			sig[i] = model.SignalShort
		default:
			sig[i] = prev
		}
		prev = sig[i]
	}
	return sig, short, long, nil
}

// Signals returns the signal points of the series for diagnostics.
func Signals(s *series.Series, w model.WindowConfig) ([]SignalPoint, error) {
	if err := checkInputs(s, w); err != nil {
		return nil, err
	}
	sig, short, long, err := signals(s, w)
	if err != nil {
		return nil, err
	}

	points := make([]SignalPoint, 0, s.Len()-w.Long+1)
	for i := w.Long - 1; i < s.Len(); i++ {
		p := SignalPoint{
			Index:   i,
			Time:    s.Time(i),
			Close:   s.Close(i),
			ShortMA: short.Float(i),
			LongMA:  long.Float(i),
			Signal:  sig[i],
		}
		if i > w.Long-1 {
			p.Delta = int(sig[i] - sig[i-1])
			p.HasDelta = true
		}
		points = append(points, p)
	}
	return points, nil
}
