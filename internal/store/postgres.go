package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/festivalops/research-cli/internal/research"
)

// Pool is the subset of pgxpool.Pool the store uses, narrowed so tests can
// substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
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
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, typically a mock in tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS research_runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	festival_id   TEXT NOT NULL,
	festival_name TEXT NOT NULL,
	phase         TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality       DOUBLE PRECISION NOT NULL DEFAULT 0,
	state         JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_research_runs_festival ON research_runs(festival_id);
CREATE INDEX IF NOT EXISTS idx_research_runs_phase ON research_runs(phase);
CREATE INDEX IF NOT EXISTS idx_research_runs_created ON research_runs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, state *research.ResearchState) (*RunRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	rec := recordFromState(id, state, now)
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal state")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO research_runs (id, festival_id, festival_name, phase, confidence, quality, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, rec.FestivalID, rec.FestivalName, string(rec.Phase), rec.Confidence, rec.Quality, stateJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return rec, nil
}

const pgRunColumns = `id, festival_id, festival_name, phase, confidence, quality, state, created_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM research_runs WHERE id = $1`, runID)
	rec, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return rec, nil
}

func (s *PostgresStore) LatestRun(ctx context.Context, festivalID string) (*RunRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM research_runs
		 WHERE festival_id = $1 ORDER BY created_at DESC LIMIT 1`, festivalID)
	rec, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest run for %s", festivalID)
	}
	return rec, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT ` + pgRunColumns + ` FROM research_runs WHERE ($1 = '' OR festival_id = $1) AND ($2 = '' OR phase = $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, query, filter.FestivalID, string(filter.Phase), limit, filter.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs scan")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) DeleteRuns(ctx context.Context, festivalID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM research_runs WHERE festival_id = $1`, festivalID)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete runs")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgRun(row scannable) (*RunRecord, error) {
	var rec RunRecord
	var phase string
	var stateJSON []byte

	err := row.Scan(&rec.ID, &rec.FestivalID, &rec.FestivalName, &phase,
		&rec.Confidence, &rec.Quality, &stateJSON, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}

	rec.Phase = research.Phase(phase)
	rec.State = &research.ResearchState{}
	if err := json.Unmarshal(stateJSON, rec.State); err != nil {
		return nil, eris.Wrap(err, "unmarshal state")
	}
	return &rec, nil
}
