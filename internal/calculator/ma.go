package calculator

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"MACrossover/internal/model"
)

// CalculateSMA computes the simple moving average of the trailing period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverage holds a rolling mean aligned index-for-index with its input.
// Values before Period-1 are undefined.
type MovingAverage struct {
	Period int
	values []decimal.Decimal
}

// Len returns the length of the underlying series.
func (m *MovingAverage) Len() int { return len(m.values) }

// Defined reports whether the window ending at i is complete.
func (m *MovingAverage) Defined(i int) bool {
	return i >= m.Period-1 && i < len(m.values)
}

// At returns the exact mean at i. The zero value is returned for undefined indices.
func (m *MovingAverage) At(i int) decimal.Decimal {
	if !m.Defined(i) {
		return decimal.Zero
	}
	return m.values[i]
}

// Float returns the mean at i as a float64, NaN when undefined.
func (m *MovingAverage) Float(i int) float64 {
	if !m.Defined(i) {
		return math.NaN()
	}
	return m.values[i].InexactFloat64()
}

// RollingSMA computes the trailing simple moving average at every index in a
// single pass. The window sum is updated incrementally (add the incoming price,
// subtract the outgoing one) in decimal arithmetic, so equal windows always
// produce equal means.
func RollingSMA(prices []float64, period int) (*MovingAverage, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	ma := &MovingAverage{Period: period, values: make([]decimal.Decimal, len(prices))}
	if len(prices) < period {
		return ma, nil
	}

	exact := make([]decimal.Decimal, len(prices))
	for i, p := range prices {
		exact[i] = decimal.NewFromFloat(p)
	}

	divisor := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i := range exact {
		sum = sum.Add(exact[i])
		if i >= period {
			sum = sum.Sub(exact[i-period])
		}
		if i >= period-1 {
			ma.values[i] = sum.Div(divisor)
		}
	}
	return ma, nil
}

// ExtractCloses returns the closing prices of the observations in order.
func ExtractCloses(obs []model.Observation) []float64 {
	closes := make([]float64, len(obs))
	for i, o := range obs {
		closes[i] = o.Close
	}
	return closes
}
