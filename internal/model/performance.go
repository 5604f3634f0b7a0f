package model

// PerformanceSummary is the result of one crossover strategy evaluation.
// JSON field names follow the public API contract.
type PerformanceSummary struct {
	TotalReturnPct  float64 `json:"total_returns"`
	TradeCount      int     `json:"number_of_trades"`
	BuySignalCount  int     `json:"buy_signals"`
	SellSignalCount int     `json:"sell_signals"`
	ShortWindow     int     `json:"short_ma_period"`
	LongWindow      int     `json:"long_ma_period"`
}

// Signal is the directional crossover indicator.
type Signal int

const (
	SignalFlat  Signal = 0
	SignalLong  Signal = 1
	SignalShort Signal = -1
)

func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "LONG"
	case SignalShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}
