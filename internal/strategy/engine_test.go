package strategy

import (
	"errors"
	"testing"
	"time"

	"MACrossover/internal/model"
	"MACrossover/internal/series"
)

func load(t *testing.T, closes []float64, w model.WindowConfig) *series.Series {
	t.Helper()
	start := time.Date(2014, 1, 24, 0, 0, 0, 0, time.UTC)
	obs := make([]model.Observation, len(closes))
	for i, c := range closes {
		obs[i] = model.Observation{Time: start.AddDate(0, 0, i), Close: c}
	}
	s, err := series.Load(obs, w)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)*0.5
	}
	return out
}

func TestEvaluate_ConstantSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	w := model.WindowConfig{Short: 10, Long: 20}
	sum, err := Evaluate(load(t, closes, w), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TradeCount != 0 || sum.BuySignalCount != 0 || sum.SellSignalCount != 0 {
		t.Errorf("expected no trades, got %+v", sum)
	}
	if sum.TotalReturnPct != 0 {
		t.Errorf("expected 0%% return, got %v", sum.TotalReturnPct)
	}
}

func TestEvaluate_RisingSeries(t *testing.T) {
	w := model.WindowConfig{Short: 10, Long: 20}
	sum, err := Evaluate(load(t, rising(100), w), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.BuySignalCount != 1 || sum.SellSignalCount != 0 || sum.TradeCount != 1 {
		t.Errorf("expected exactly one buy, got %+v", sum)
	}
	if sum.TotalReturnPct <= 0 {
		t.Errorf("expected positive return, got %v", sum.TotalReturnPct)
	}
	// Long from close[19] to close[99].
	if sum.TotalReturnPct != 36.53 {
		t.Errorf("expected 36.53, got %v", sum.TotalReturnPct)
	}
	if sum.ShortWindow != 10 || sum.LongWindow != 20 {
		t.Errorf("windows not echoed: %+v", sum)
	}
}

func TestEvaluate_LongWindowEqualsLength(t *testing.T) {
	w := model.WindowConfig{Short: 10, Long: 20}
	for _, closes := range [][]float64{rising(20), {
		120, 119, 118, 117, 116, 115, 114, 113, 112, 111,
		110, 109, 108, 107, 106, 105, 104, 103, 102, 101,
	}} {
		sum, err := Evaluate(load(t, closes, w), w)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sum.TradeCount != 0 {
			t.Errorf("expected no trades with a single defined index, got %+v", sum)
		}
		if sum.TotalReturnPct != 0 {
			t.Errorf("expected 0%% return, got %v", sum.TotalReturnPct)
		}
	}
}

func TestEvaluate_FallingSeriesShortsTheMove(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	w := model.WindowConfig{Short: 5, Long: 10}
	sum, err := Evaluate(load(t, closes, w), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TradeCount != 0 {
		t.Errorf("entering short from flat is not a sell, got %+v", sum)
	}
	if sum.TotalReturnPct <= 0 {
		t.Errorf("short position on a falling series should gain, got %v", sum.TotalReturnPct)
	}
}

func TestEvaluate_Crossings(t *testing.T) {
	// Up, down, up again: buy, sell, buy.
	var closes []float64
	for i := 0; i < 20; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 0; i < 20; i++ {
		closes = append(closes, 119-float64(i)*2)
	}
	for i := 0; i < 20; i++ {
		closes = append(closes, 81+float64(i)*3)
	}
	w := model.WindowConfig{Short: 3, Long: 6}
	sum, err := Evaluate(load(t, closes, w), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.BuySignalCount != 2 || sum.SellSignalCount != 1 {
		t.Errorf("expected 2 buys and 1 sell, got %+v", sum)
	}
	if sum.TradeCount != sum.BuySignalCount+sum.SellSignalCount {
		t.Errorf("trade count must equal buys+sells, got %+v", sum)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 10, 9, 10, 12, 13, 12, 11, 12, 14, 15, 13, 12}
	w := model.WindowConfig{Short: 2, Long: 4}
	s := load(t, closes, w)
	a, err := Evaluate(s, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := Evaluate(s, w)
	if *a != *b {
		t.Errorf("expected identical results, got %+v and %+v", a, b)
	}
	if a.BuySignalCount < 0 || a.SellSignalCount < 0 || a.TradeCount != a.BuySignalCount+a.SellSignalCount {
		t.Errorf("invalid counts: %+v", a)
	}
}

func TestEvaluate_RejectsMismatchedWindow(t *testing.T) {
	s := load(t, rising(20), model.WindowConfig{Short: 10, Long: 20})
	if _, err := Evaluate(s, model.WindowConfig{Short: 50, Long: 20}); !errors.Is(err, model.ErrInvalidWindowConfig) {
		t.Errorf("expected ErrInvalidWindowConfig, got %v", err)
	}
	if _, err := Evaluate(s, model.WindowConfig{Short: 10, Long: 30}); !errors.Is(err, series.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCountTransitions(t *testing.T) {
	L, S, F := model.SignalLong, model.SignalShort, model.SignalFlat
	tests := []struct {
		sig   []model.Signal
		long  int
		buys  int
		sells int
	}{
		{[]model.Signal{F, F, L, L, L}, 3, 1, 0},
		{[]model.Signal{F, F, L}, 3, 0, 0},
		{[]model.Signal{F, F, S, L, S, L}, 3, 2, 1},
		{[]model.Signal{F, F, F, F, L}, 3, 1, 0},
		{[]model.Signal{F, F, L, S}, 3, 1, 1},
		{[]model.Signal{F, F, S, S}, 3, 0, 0},
	}
	for i, tt := range tests {
		buys, sells := countTransitions(tt.sig, tt.long)
		if buys != tt.buys || sells != tt.sells {
			t.Errorf("case %d: expected %d/%d, got %d/%d", i, tt.buys, tt.sells, buys, sells)
		}
	}
}

func TestRoundPct(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.123456, 12.35},
		{-0.0004, -0.04},
		{0.00125, 0.12},
		{0.02675, 2.67},
		{0.01005, 1},
		{0.0003125, 0.03},
	}
	for _, tt := range tests {
		if got := roundPct(tt.in); got != tt.want {
			t.Errorf("roundPct(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestSignals(t *testing.T) {
	w := model.WindowConfig{Short: 10, Long: 20}
	points, err := Signals(load(t, rising(25), w), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	first := points[0]
	if first.Index != 19 || first.HasDelta {
		t.Errorf("first point should be index 19 without delta, got %+v", first)
	}
	if first.ShortMA != 107.25 || first.LongMA != 104.75 {
		t.Errorf("unexpected averages at index 19: %+v", first)
	}
	for _, p := range points {
		if p.Signal != model.SignalLong {
			t.Errorf("index %d: expected LONG, got %s", p.Index, p.Signal)
		}
		if p.HasDelta && p.Delta != 0 {
			t.Errorf("index %d: expected zero delta, got %d", p.Index, p.Delta)
		}
	}
}

func TestSignals_TieKeepsDirection(t *testing.T) {
	// With S=1, L=2 the averages tie at indices 2 and 4.
	w := model.WindowConfig{Short: 1, Long: 2}
	s := load(t, []float64{1, 2, 2, 1, 1, 2}, w)

	points, err := Signals(s, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.Signal{
		model.SignalLong,  // 1: 2 > 1.5
		model.SignalLong,  // 2: 2 == 2
		model.SignalShort, // 3: 1 < 1.5
		model.SignalShort, // 4: 1 == 1
		model.SignalLong,  // 5: 2 > 1.5
	}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(points))
	}
	for i, p := range points {
		if p.Index != i+1 || p.Signal != want[i] {
			t.Errorf("index %d: expected %s, got %s", p.Index, want[i], p.Signal)
		}
	}
	if points[1].ShortMA != points[1].LongMA || points[3].ShortMA != points[3].LongMA {
		t.Errorf("expected ties at indices 2 and 4, got %+v / %+v", points[1], points[3])
	}

	sum, err := Evaluate(s, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.BuySignalCount != 2 || sum.SellSignalCount != 1 || sum.TradeCount != 3 {
		t.Errorf("expected 2 buys and 1 sell, got %+v", sum)
	}
}
