package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"MACrossover/internal/model"
)

func bar(day int, close float64) model.Observation {
	return model.Observation{
		Time:       time.Date(2014, 1, 24, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:       close,
		High:       close + 1,
		Low:        close / 2,
		Close:      close,
		Volume:     1000,
		Instrument: "HINDALCO",
	}
}

// stores returns every Store implementation that can run without external services.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlStore, err := NewSQLStore(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlStore.Close() })
	return map[string]Store{
		"sqlite": sqlStore,
		"memory": NewMemoryStore(),
	}
}

func TestStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		rec, err := s.Append(ctx, bar(0, 114))
		if err != nil {
			t.Fatalf("%s: append: %v", name, err)
		}
		if rec.ID == 0 || rec.Close != 114 {
			t.Errorf("%s: unexpected record %+v", name, rec)
		}
		if _, err := s.AppendBatch(ctx, []model.Observation{bar(1, 111.1), bar(2, 113.8), bar(3, 111.75)}); err != nil {
			t.Fatalf("%s: append batch: %v", name, err)
		}

		n, err := s.Count(ctx)
		if err != nil || n != 4 {
			t.Errorf("%s: expected 4 records, got %d (%v)", name, n, err)
		}

		page, err := s.List(ctx, 1, 2)
		if err != nil {
			t.Fatalf("%s: list: %v", name, err)
		}
		if len(page) != 2 || page[0].Close != 111.1 || page[1].Close != 113.8 {
			t.Errorf("%s: unexpected page %+v", name, page)
		}
		if !page[0].Time.Equal(bar(1, 0).Time) {
			t.Errorf("%s: timestamp not round-tripped: %v", name, page[0].Time)
		}
	}
}

func TestStore_SeriesOrderedByTime(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		other := bar(1, 50)
		other.Instrument = "NIFTY"
		if _, err := s.AppendBatch(ctx, []model.Observation{bar(2, 3), bar(0, 1), other, bar(1, 2)}); err != nil {
			t.Fatalf("%s: append batch: %v", name, err)
		}

		obs, err := s.Series(ctx, "HINDALCO")
		if err != nil {
			t.Fatalf("%s: series: %v", name, err)
		}
		if len(obs) != 3 {
			t.Fatalf("%s: expected 3 observations, got %d", name, len(obs))
		}
		for i, o := range obs {
			if o.Close != float64(i+1) {
				t.Errorf("%s: index %d: expected close %d, got %v", name, i, i+1, o.Close)
			}
		}

		all, err := s.Series(ctx, "")
		if err != nil || len(all) != 4 {
			t.Errorf("%s: expected 4 observations across instruments, got %d (%v)", name, len(all), err)
		}
	}
}

func TestStore_RejectsInvalidAndDuplicates(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		bad := bar(0, 100)
		bad.High = 90
		if _, err := s.Append(ctx, bad); !errors.Is(err, model.ErrInvalidObservation) {
			t.Errorf("%s: expected ErrInvalidObservation, got %v", name, err)
		}

		if _, err := s.Append(ctx, bar(0, 100)); err != nil {
			t.Fatalf("%s: append: %v", name, err)
		}
		if _, err := s.Append(ctx, bar(0, 101)); !errors.Is(err, ErrDuplicate) {
			t.Errorf("%s: expected ErrDuplicate, got %v", name, err)
		}

		// A failing batch must not leave partial rows behind.
		if _, err := s.AppendBatch(ctx, []model.Observation{bar(1, 100), bar(0, 100)}); !errors.Is(err, ErrDuplicate) {
			t.Errorf("%s: expected ErrDuplicate from batch, got %v", name, err)
		}
		if n, _ := s.Count(ctx); n != 1 {
			t.Errorf("%s: expected 1 record after failed batch, got %d", name, n)
		}
	}
}

func TestStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		if _, err := s.AppendBatch(ctx, []model.Observation{bar(0, 1), bar(1, 2)}); err != nil {
			t.Fatalf("%s: append batch: %v", name, err)
		}
		n, err := s.DeleteAll(ctx)
		if err != nil || n != 2 {
			t.Errorf("%s: expected 2 deleted, got %d (%v)", name, n, err)
		}
		if c, _ := s.Count(ctx); c != 0 {
			t.Errorf("%s: expected empty store, got %d", name, c)
		}

		rec, err := s.Append(ctx, bar(5, 3))
		if err != nil {
			t.Fatalf("%s: append after delete: %v", name, err)
		}
		if rec.ID != 1 {
			t.Errorf("%s: expected id sequence to restart at 1, got %d", name, rec.ID)
		}
	}
}

func TestStore_Evaluations(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		for i, id := range []string{"a", "b", "c"} {
			rec := &EvaluationRecord{
				ID:           id,
				CreatedAt:    base.Add(time.Duration(i) * time.Minute),
				Instrument:   "HINDALCO",
				Observations: 100 + i,
				Summary: model.PerformanceSummary{
					TotalReturnPct: 1.5 * float64(i), TradeCount: i,
					BuySignalCount: i, ShortWindow: 20, LongWindow: 50,
				},
			}
			if err := s.RecordEvaluation(ctx, rec); err != nil {
				t.Fatalf("%s: record evaluation: %v", name, err)
			}
		}
		got, err := s.ListEvaluations(ctx, 2)
		if err != nil {
			t.Fatalf("%s: list evaluations: %v", name, err)
		}
		if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
			t.Fatalf("%s: unexpected evaluations %+v", name, got)
		}
		for _, limit := range []int{0, -1} {
			none, err := s.ListEvaluations(ctx, limit)
			if err != nil || len(none) != 0 {
				t.Errorf("%s: limit %d: expected no evaluations, got %d (%v)", name, limit, len(none), err)
			}
		}
		if got[0].Summary.TotalReturnPct != 3 || got[0].Summary.LongWindow != 50 || got[0].Observations != 102 {
			t.Errorf("%s: summary not round-tripped: %+v", name, got[0])
		}
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("mysql", ""); err == nil {
		t.Error("expected error for unsupported driver")
	}
	s, err := Open(DriverMemory, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()
}

func TestNewSQLStore_CreatesDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "crossover.db")
	s, err := NewSQLStore(DriverSQLite, path)
	if err != nil {
		t.Fatalf("open sqlite in missing dir: %v", err)
	}
	defer s.Close()
	if _, err := s.Append(context.Background(), bar(0, 10)); err != nil {
		t.Errorf("append: %v", err)
	}
}
