package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festivalops/research-cli/internal/research"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO research_runs`).
		WithArgs(pgxmock.AnyArg(), "fest-1", "Orkaan Festival", "completed",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := s.SaveRun(context.Background(), completedState("fest-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, research.PhaseCompleted, rec.Phase)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM research_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"id", "festival_id", "festival_name", "phase", "confidence", "quality", "state", "created_at",
	}).AddRow(
		"run-1", "fest-1", "Orkaan Festival", "completed", 0.74, 81.5,
		[]byte(`{"festivalId":"fest-1","festivalName":"Orkaan Festival","phase":"completed","overallConfidence":0.74}`),
		completedState("fest-1").LastUpdatedAt,
	)
	mock.ExpectQuery(`SELECT .+ FROM research_runs\s+WHERE festival_id = \$1 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("fest-1").
		WillReturnRows(rows)

	rec, err := s.LatestRun(context.Background(), "fest-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, research.PhaseCompleted, rec.Phase)
	require.NotNil(t, rec.State)
	assert.InDelta(t, 0.74, rec.State.OverallConfidence, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM research_runs WHERE festival_id = \$1`).
		WithArgs("fest-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := s.DeleteRuns(context.Background(), "fest-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS research_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
