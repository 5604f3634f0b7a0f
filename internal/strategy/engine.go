package strategy

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"MACrossover/internal/model"
	"MACrossover/internal/series"
)

// Evaluate computes the dual moving-average crossover performance over a
// validated series. It is a pure function of its inputs.
func Evaluate(s *series.Series, w model.WindowConfig) (*model.PerformanceSummary, error) {
	if err := checkInputs(s, w); err != nil {
		return nil, err
	}
	sig, _, _, err := signals(s, w)
	if err != nil {
		return nil, err
	}

	buys, sells := countTransitions(sig, w.Long)

	// Position held into period i is the signal at i-1.
	growth := 1.0
	for i := 1; i < s.Len(); i++ {
		held := sig[i-1]
		if held == model.SignalFlat {
			continue
		}
		r := s.Close(i)/s.Close(i-1) - 1
		growth *= 1 + float64(held)*r
	}

	return &model.PerformanceSummary{
		TotalReturnPct:  roundPct(growth - 1),
		TradeCount:      buys + sells,
		BuySignalCount:  buys,
		SellSignalCount: sells,
		ShortWindow:     w.Short,
		LongWindow:      w.Long,
	}, nil
}

// countTransitions walks the defined part of the signal sequence. A sell is a
// move from long to short. A buy is a move into long, either from short or as
// the first position taken from flat. Nothing is counted unless at least one
// position delta exists, i.e. the series extends past the first defined index.
func countTransitions(sig []model.Signal, long int) (buys, sells int) {
	if len(sig) <= long {
		return 0, 0
	}
	pos := model.SignalFlat
	for i := long - 1; i < len(sig); i++ {
		switch {
		case sig[i] == model.SignalLong && pos != model.SignalLong:
			buys++
		case sig[i] == model.SignalShort && pos == model.SignalLong:
			sells++
		}
		if sig[i] != model.SignalFlat {
			pos = sig[i]
		}
	}
	return buys, sells
}

// roundPct converts a fractional return to a percentage rounded at two
// decimals. The percentage is formed in float64 first and its exact binary
// value is rounded, so 0.02675 gives 2.67 rather than 2.68.
func roundPct(ret float64) float64 {
	pct := ret * 100
	return decimal.RequireFromString(strconv.FormatFloat(pct, 'f', 2, 64)).InexactFloat64()
}

func checkInputs(s *series.Series, w model.WindowConfig) error {
	if s == nil {
		return fmt.Errorf("%w: nil series", series.ErrInsufficientData)
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if s.Len() < w.Long {
		return fmt.Errorf("%w: need at least %d records, got %d", series.ErrInsufficientData, w.Long, s.Len())
	}
	return nil
}
