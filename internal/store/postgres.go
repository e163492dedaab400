package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/harmonize/internal/db"
	"github.com/sells-group/harmonize/internal/frame"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	target_year TEXT NOT NULL,
	method      TEXT NOT NULL,
	crs         TEXT NOT NULL DEFAULT '',
	row_count   INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	seq       INTEGER NOT NULL,
	geoid     TEXT NOT NULL,
	period    TEXT NOT NULL,
	geom      BYTEA,
	variables JSONB NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_target_year ON runs(target_year);
CREATE INDEX IF NOT EXISTS idx_run_rows_period ON run_rows(run_id, period);
`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, targetYear, method string, result *frame.Collection) (*Run, error) {
	run := &Run{
		ID:         uuid.New().String(),
		TargetYear: targetYear,
		Method:     method,
		CRS:        result.CRS,
		RowCount:   result.Len(),
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, target_year, method, crs, row_count, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.TargetYear, run.Method, run.CRS, run.RowCount, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	rows := make([][]any, 0, result.Len())
	for i := 0; i < result.Len(); i++ {
		geomBytes, varBytes, err := encodeRow(result, i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{run.ID, i, result.IDs[i], result.Periods[i], geomBytes, varBytes})
	}

	if _, err := db.CopyFrom(ctx, s.pool, "run_rows",
		[]string{"run_id", "seq", "geoid", "period", "geom", "variables"}, rows); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, target_year, method, crs, row_count, created_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.TargetYear, &run.Method, &run.CRS, &run.RowCount, &run.CreatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: run %s not found", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, target_year, method, crs, row_count, created_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.TargetYear, &run.Method, &run.CRS, &run.RowCount, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) LoadResult(ctx context.Context, runID string) (*frame.Collection, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT geoid, period, geom, variables FROM run_rows WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load result %s", runID)
	}
	defer rows.Close()

	out := frame.New(run.CRS)
	for rows.Next() {
		var (
			id, period          string
			geomBytes, varBytes []byte
		)
		if err := rows.Scan(&id, &period, &geomBytes, &varBytes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result row")
		}
		if err := decodeRow(out, id, period, geomBytes, varBytes); err != nil {
			return nil, err
		}
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate result rows")
}
