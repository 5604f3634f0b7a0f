package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"MACrossover/internal/model"
)

// Compile-time interface check.
var _ Store = (*SQLStore)(nil)

// SQLStore persists observations to SQLite or PostgreSQL.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	mu     sync.Mutex
}

type observationRow struct {
	ID         int64   `db:"id"`
	TS         int64   `db:"ts"`
	Open       float64 `db:"open"`
	High       float64 `db:"high"`
	Low        float64 `db:"low"`
	Close      float64 `db:"close"`
	Volume     int64   `db:"volume"`
	Instrument string  `db:"instrument"`
}

func (r observationRow) observation() model.Observation {
	return model.Observation{
		Time:       time.Unix(r.TS, 0).UTC(),
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		Instrument: r.Instrument,
	}
}

type evaluationRow struct {
	ID             string  `db:"id"`
	CreatedAt      int64   `db:"created_at"`
	Instrument     string  `db:"instrument"`
	ShortWindow    int     `db:"short_window"`
	LongWindow     int     `db:"long_window"`
	Observations   int     `db:"observations"`
	TotalReturnPct float64 `db:"total_return_pct"`
	TradeCount     int     `db:"trade_count"`
	BuySignals     int     `db:"buy_signals"`
	SellSignals    int     `db:"sell_signals"`
}

const insertObservationSQL = `INSERT INTO observations
	(ts, open, high, low, close, volume, instrument)
	VALUES (?,?,?,?,?,?,?)`

// NewSQLStore opens (or creates) the database and runs migrations.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	if driver == DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	} else if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] %s store opened", driver)
	return s, nil
}

func (s *SQLStore) migrate() error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			` + idColumn + `,
			ts         BIGINT NOT NULL,
			open       DOUBLE PRECISION NOT NULL,
			high       DOUBLE PRECISION NOT NULL,
			low        DOUBLE PRECISION NOT NULL,
			close      DOUBLE PRECISION NOT NULL,
			volume     BIGINT NOT NULL,
			instrument TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_observations_instrument_ts ON observations(instrument, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_ts ON observations(ts)`,

		`CREATE TABLE IF NOT EXISTS evaluations (
			id               TEXT PRIMARY KEY,
			created_at       BIGINT NOT NULL,
			instrument       TEXT NOT NULL,
			short_window     INTEGER NOT NULL,
			long_window      INTEGER NOT NULL,
			observations     INTEGER NOT NULL,
			total_return_pct DOUBLE PRECISION NOT NULL,
			trade_count      INTEGER NOT NULL,
			buy_signals      INTEGER NOT NULL,
			sell_signals     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", strings.TrimSpace(stmt)[:40], err)
		}
	}
	return nil
}

func (s *SQLStore) Append(ctx context.Context, obs model.Observation) (Record, error) {
	if err := obs.Validate(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(insertObservationSQL+" RETURNING id"),
		obs.Time.Unix(), obs.Open, obs.High, obs.Low, obs.Close, obs.Volume, obs.Instrument,
	).Scan(&id)
	if err != nil {
		return Record{}, translateError(err)
	}
	obs.Time = time.Unix(obs.Time.Unix(), 0).UTC()
	return Record{ID: id, Observation: obs}, nil
}

func (s *SQLStore) AppendBatch(ctx context.Context, obs []model.Observation) (int, error) {
	if err := validateAll(obs); err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(insertObservationSQL))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.Time.Unix(), o.Open, o.High, o.Low, o.Close, o.Volume, o.Instrument); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, translateError(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(obs), nil
}

func (s *SQLStore) List(ctx context.Context, skip, limit int) ([]Record, error) {
	var rows []observationRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, ts, open, high, low, close, volume, instrument
		FROM observations ORDER BY id LIMIT ? OFFSET ?`), limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record{ID: r.ID, Observation: r.observation()}
	}
	return out, nil
}

func (s *SQLStore) Series(ctx context.Context, instrument string) ([]model.Observation, error) {
	query := `SELECT id, ts, open, high, low, close, volume, instrument FROM observations`
	var args []any
	if instrument != "" {
		query += ` WHERE instrument = ?`
		args = append(args, instrument)
	}
	query += ` ORDER BY ts, id`

	var rows []observationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	out := make([]model.Observation, len(rows))
	for i, r := range rows {
		out[i] = r.observation()
	}
	return out, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM observations`); err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

// DeleteAll removes every observation and restarts the id sequence at 1.
func (s *SQLStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM observations`)
	if err != nil {
		return 0, fmt.Errorf("delete observations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	reset := `DELETE FROM sqlite_sequence WHERE name = 'observations'`
	if s.driver == DriverPostgres {
		reset = `ALTER SEQUENCE observations_id_seq RESTART WITH 1`
	}
	if _, err := tx.ExecContext(ctx, reset); err != nil {
		return 0, fmt.Errorf("reset id sequence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *SQLStore) RecordEvaluation(ctx context.Context, rec *EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := rec.Summary
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO evaluations
		(id, created_at, instrument, short_window, long_window, observations,
		 total_return_pct, trade_count, buy_signals, sell_signals)
		VALUES (?,?,?,?,?,?,?,?,?,?)`),
		rec.ID, rec.CreatedAt.Unix(), rec.Instrument, sum.ShortWindow, sum.LongWindow, rec.Observations,
		sum.TotalReturnPct, sum.TradeCount, sum.BuySignalCount, sum.SellSignalCount,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

func (s *SQLStore) ListEvaluations(ctx context.Context, limit int) ([]EvaluationRecord, error) {
	if limit <= 0 {
		return []EvaluationRecord{}, nil
	}
	var rows []evaluationRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, created_at, instrument, short_window, long_window,
		observations, total_return_pct, trade_count, buy_signals, sell_signals
		FROM evaluations ORDER BY created_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	out := make([]EvaluationRecord, len(rows))
	for i, r := range rows {
		out[i] = EvaluationRecord{
			ID:           r.ID,
			CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
			Instrument:   r.Instrument,
			Observations: r.Observations,
			Summary: model.PerformanceSummary{
				TotalReturnPct:  r.TotalReturnPct,
				TradeCount:      r.TradeCount,
				BuySignalCount:  r.BuySignals,
				SellSignalCount: r.SellSignals,
				ShortWindow:     r.ShortWindow,
				LongWindow:      r.LongWindow,
			},
		}
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	log.Printf("[INFO] closing %s store", s.driver)
	return s.db.Close()
}

// translateError maps unique-constraint violations from either driver to ErrDuplicate.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Message)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
