package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/festivalops/research-cli/internal/research"
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
CREATE TABLE IF NOT EXISTS research_runs (
	id            TEXT PRIMARY KEY,
	festival_id   TEXT NOT NULL,
	festival_name TEXT NOT NULL,
	phase         TEXT NOT NULL,
	confidence    REAL NOT NULL DEFAULT 0,
	quality       REAL NOT NULL DEFAULT 0,
	state         TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_research_runs_festival ON research_runs(festival_id);
CREATE INDEX IF NOT EXISTS idx_research_runs_phase ON research_runs(phase);
CREATE INDEX IF NOT EXISTS idx_research_runs_created ON research_runs(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, state *research.ResearchState) (*RunRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	rec := recordFromState(id, state, now)
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal state")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_runs (id, festival_id, festival_name, phase, confidence, quality, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.FestivalID, rec.FestivalName, string(rec.Phase), rec.Confidence, rec.Quality, string(stateJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return rec, nil
}

const sqliteRunColumns = `id, festival_id, festival_name, phase, confidence, quality, state, created_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM research_runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context, festivalID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM research_runs
		 WHERE festival_id = ? ORDER BY created_at DESC LIMIT 1`, festivalID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM research_runs WHERE 1=1`
	var args []any

	if filter.FestivalID != "" {
		query += ` AND festival_id = ?`
		args = append(args, filter.FestivalID)
	}
	if filter.Phase != "" {
		query += ` AND phase = ?`
		args = append(args, string(filter.Phase))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) DeleteRuns(ctx context.Context, festivalID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM research_runs WHERE festival_id = ?`, festivalID)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete runs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*RunRecord, error) {
	var rec RunRecord
	var phase, stateJSON string

	err := row.Scan(&rec.ID, &rec.FestivalID, &rec.FestivalName, &phase,
		&rec.Confidence, &rec.Quality, &stateJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("store: run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}

	rec.Phase = research.Phase(phase)
	rec.State = &research.ResearchState{}
	if err := json.Unmarshal([]byte(stateJSON), rec.State); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal state")
	}
	return &rec, nil
}
