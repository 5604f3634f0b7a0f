package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"MACrossover/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	records     []Record
	keys        map[string]struct{}
	nextID      int64
	evaluations []EvaluationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]struct{}), nextID: 1}
}

func observationKey(o model.Observation) string {
	return fmt.Sprintf("%s|%d", o.Instrument, o.Time.Unix())
}

func (m *MemoryStore) Append(_ context.Context, obs model.Observation) (Record, error) {
	if err := obs.Validate(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := observationKey(obs)
	if _, ok := m.keys[key]; ok {
		return Record{}, fmt.Errorf("%w: %s at %s", ErrDuplicate, obs.Instrument, obs.Time.Format(time.RFC3339))
	}
	return m.insert(obs, key), nil
}

func (m *MemoryStore) AppendBatch(_ context.Context, obs []model.Observation) (int, error) {
	if err := validateAll(obs); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(obs))
	for i, o := range obs {
		key := observationKey(o)
		_, stored := m.keys[key]
		_, batched := seen[key]
		if stored || batched {
			return 0, fmt.Errorf("record %d: %w: %s at %s", i, ErrDuplicate, o.Instrument, o.Time.Format(time.RFC3339))
		}
		seen[key] = struct{}{}
	}
	for _, o := range obs {
		m.insert(o, observationKey(o))
	}
	return len(obs), nil
}

func (m *MemoryStore) insert(o model.Observation, key string) Record {
	o.Time = time.Unix(o.Time.Unix(), 0).UTC()
	rec := Record{ID: m.nextID, Observation: o}
	m.nextID++
	m.records = append(m.records, rec)
	m.keys[key] = struct{}{}
	return rec
}

func (m *MemoryStore) List(_ context.Context, skip, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if skip < 0 {
		skip = 0
	}
	if skip >= len(m.records) || limit <= 0 {
		return []Record{}, nil
	}
	end := skip + limit
	if end > len(m.records) {
		end = len(m.records)
	}
	out := make([]Record, end-skip)
	copy(out, m.records[skip:end])
	return out, nil
}

func (m *MemoryStore) Series(_ context.Context, instrument string) ([]model.Observation, error) {
	m.mu.RLock()
	recs := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		if instrument == "" || r.Instrument == instrument {
			recs = append(recs, r)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Time.Before(recs[j].Time) })
	out := make([]model.Observation, len(recs))
	for i, r := range recs {
		out[i] = r.Observation
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.records))
	m.records = nil
	m.keys = make(map[string]struct{})
	m.nextID = 1
	return n, nil
}

func (m *MemoryStore) RecordEvaluation(_ context.Context, rec *EvaluationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations = append(m.evaluations, *rec)
	return nil
}

func (m *MemoryStore) ListEvaluations(_ context.Context, limit int) ([]EvaluationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		return []EvaluationRecord{}, nil
	}
	out := make([]EvaluationRecord, 0, limit)
	for i := len(m.evaluations) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.evaluations[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
