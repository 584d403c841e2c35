package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridoc/pipeline/source"
	"github.com/veridoc/pipeline/store"
)

func newTestClient(t *testing.T) (*client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &client{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestClaimFileExecution_Success(t *testing.T) {
	c, mock := newTestClient(t)
	mock.ExpectQuery(`INSERT INTO workflow_file_executions`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := c.ClaimFileExecution(context.Background(), store.WorkflowFileExecution{
		WorkflowExecutionID: "wf-1",
		OrganizationID:      "org-1",
		FileHash:            "abc",
		FilePath:            "/a.pdf",
		Status:              store.FileExecutionPending,
	})
	require.NoError(t, err)
	assert.Equal(t, "7", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimFileExecution_UniqueViolationBecomesAlreadyClaimed(t *testing.T) {
	c, mock := newTestClient(t)
	mock.ExpectQuery(`INSERT INTO workflow_file_executions`).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	_, err := c.ClaimFileExecution(context.Background(), store.WorkflowFileExecution{
		WorkflowExecutionID: "wf-1",
		OrganizationID:      "org-1",
		FileHash:            "abc",
		FilePath:            "/a.pdf",
		Status:              store.FileExecutionPending,
	})
	assert.ErrorIs(t, err, store.ErrAlreadyClaimed)
}

func TestIsCompleted_NoRowsIsNotCompleted(t *testing.T) {
	c, mock := newTestClient(t)
	mock.ExpectQuery(`SELECT is_completed FROM file_history`).
		WillReturnRows(sqlmock.NewRows([]string{"is_completed"}))

	completed, err := c.IsCompleted(context.Background(), "wf-1", "hash-1", "/a.pdf")
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestInFlight_EmptyIdentifiersNeverFlagsInFlight(t *testing.T) {
	c, _ := newTestClient(t)
	inFlight, err := c.InFlight(context.Background(), source.InFlightQuery{})
	require.NoError(t, err)
	assert.False(t, inFlight)
}
