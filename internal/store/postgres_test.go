package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"briefcast/internal/models"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDb.Close() })
	return NewPostgresFromDB(sqlx.NewDb(mockDb, "sqlmock")), mock
}

func TestPostgresGetEpisode(t *testing.T) {
	st, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "number", "status", "target_duration_minutes", "usage_recorded", "created_at", "updated_at"}).
		AddRow(3, 7, 1, models.StatusQueued, 10, false, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT \* FROM episodes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(3, int64(7)).WillReturnRows(rows)

	episode, err := st.GetEpisode(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, episode.ID)
	assert.Equal(t, models.StatusQueued, episode.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetEpisodeNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM episodes WHERE id = \$1 AND user_id = \$2`).
		WithArgs(3, int64(8)).WillReturnError(sql.ErrNoRows)

	_, err := st.GetEpisode(context.Background(), 8, 3)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateEpisodePartial(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE episodes SET updated_at = NOW\(\), status = \$1, error_message = \$2 WHERE id = \$3 AND user_id = \$4`).
		WithArgs(models.StatusFailed, "no active topics", 3, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	status := models.StatusFailed
	msg := "no active topics"
	err := st.UpdateEpisode(context.Background(), 7, 3, EpisodeUpdate{Status: &status, ErrorMessage: &msg})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateEpisodeNoRows(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE episodes SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	status := models.StatusReady
	err := st.UpdateEpisode(context.Background(), 7, 99, EpisodeUpdate{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresClaimSchedule(t *testing.T) {
	st, mock := newMockStore(t)

	expected := time.Date(2026, time.March, 10, 6, 45, 0, 0, time.UTC)
	next := expected.AddDate(0, 0, 1)

	mock.ExpectExec(`UPDATE episode_schedules\s+SET next_run_at = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND next_run_at = \$3`).
		WithArgs(next, 5, expected).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := st.ClaimSchedule(context.Background(), 5, expected, next)
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimScheduleLost(t *testing.T) {
	st, mock := newMockStore(t)

	expected := time.Date(2026, time.March, 10, 6, 45, 0, 0, time.UTC)
	next := expected.AddDate(0, 0, 1)

	mock.ExpectExec(`UPDATE episode_schedules`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := st.ClaimSchedule(context.Background(), 5, expected, next)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestPostgresReplaceSegments(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM episode_sources WHERE episode_id = \$1 AND segment_id IS NOT NULL`).
		WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM episode_segments WHERE episode_id = \$1`).
		WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO episode_segments`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := st.ReplaceSegments(context.Background(), 3, []models.EpisodeSegment{
		{OrderIndex: 0, Title: "a", Script: "s", StartTimeSeconds: 0, DurationSeconds: 30},
	})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
