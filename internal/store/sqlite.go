package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/harmonize/internal/frame"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	target_year TEXT NOT NULL,
	method      TEXT NOT NULL,
	crs         TEXT NOT NULL DEFAULT '',
	row_count   INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	seq       INTEGER NOT NULL,
	geoid     TEXT NOT NULL,
	period    TEXT NOT NULL,
	geom      BLOB,
	variables TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_target_year ON runs(target_year);
CREATE INDEX IF NOT EXISTS idx_run_rows_period ON run_rows(run_id, period);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, targetYear, method string, result *frame.Collection) (*Run, error) {
	run := &Run{
		ID:         uuid.New().String(),
		TargetYear: targetYear,
		Method:     method,
		CRS:        result.CRS,
		RowCount:   result.Len(),
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, target_year, method, crs, row_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.TargetYear, run.Method, run.CRS, run.RowCount, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_rows (run_id, seq, geoid, period, geom, variables) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare row insert")
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < result.Len(); i++ {
		geomBytes, varBytes, err := encodeRow(result, i)
		if err != nil {
			return nil, err
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, result.IDs[i], result.Periods[i], geomBytes, string(varBytes)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert row %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, target_year, method, crs, row_count, created_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&run.ID, &run.TargetYear, &run.Method, &run.CRS, &run.RowCount, &run.CreatedAt)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target_year, method, crs, row_count, created_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.TargetYear, &run.Method, &run.CRS, &run.RowCount, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) LoadResult(ctx context.Context, runID string) (*frame.Collection, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT geoid, period, geom, variables FROM run_rows WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load result %s", runID)
	}
	defer func() { _ = rows.Close() }()

	out := frame.New(run.CRS)
	for rows.Next() {
		var (
			id, period string
			geomBytes  []byte
			varText    string
		)
		if err := rows.Scan(&id, &period, &geomBytes, &varText); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result row")
		}
		if err := decodeRow(out, id, period, geomBytes, []byte(varText)); err != nil {
			return nil, err
		}
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate result rows")
}
