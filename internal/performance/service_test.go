package performance

import (
	"context"
	"errors"
	"testing"
	"time"

	"MACrossover/internal/model"
	"MACrossover/internal/series"
	"MACrossover/internal/store"
)

func seed(t *testing.T, st store.Store, n int) {
	t.Helper()
	obs := make([]model.Observation, n)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range obs {
		c := 100 + float64(i)*0.5
		obs[i] = model.Observation{
			Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c,
			Volume: 10, Instrument: "HINDALCO",
		}
	}
	// Insert in reverse to check the store returns time order.
	for i, j := 0, len(obs)-1; i < j; i, j = i+1, j-1 {
		obs[i], obs[j] = obs[j], obs[i]
	}
	if _, err := st.AppendBatch(context.Background(), obs); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestService_Evaluate(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, 100)
	svc := NewService(st)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return fixed }

	res, err := svc.Evaluate(context.Background(), "HINDALCO", model.WindowConfig{Short: 10, Long: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary.BuySignalCount != 1 || res.Summary.SellSignalCount != 0 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
	if res.Observations != 100 || res.ID == "" {
		t.Errorf("unexpected result metadata %+v", res)
	}

	hist, err := svc.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].ID != res.ID || !hist[0].CreatedAt.Equal(fixed) {
		t.Errorf("unexpected history %+v", hist)
	}
}

func TestService_Errors(t *testing.T) {
	st := store.NewMemoryStore()
	seed(t, st, 15)
	svc := NewService(st)
	ctx := context.Background()

	if _, err := svc.Evaluate(ctx, "HINDALCO", model.WindowConfig{Short: 50, Long: 20}); !errors.Is(err, model.ErrInvalidWindowConfig) {
		t.Errorf("expected ErrInvalidWindowConfig, got %v", err)
	}
	if _, err := svc.Evaluate(ctx, "HINDALCO", model.WindowConfig{Short: 10, Long: 20}); !errors.Is(err, series.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := svc.Evaluate(ctx, "UNKNOWN", model.WindowConfig{Short: 2, Long: 3}); !errors.Is(err, series.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for unknown instrument, got %v", err)
	}
	if hist, _ := svc.History(ctx, 10); len(hist) != 0 {
		t.Errorf("failed evaluations must not be recorded, got %d", len(hist))
	}
}
