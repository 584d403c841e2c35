// Package postgres is the alternate Repository binding named in DESIGN.md:
// it exercises the unique-constraint-insert-race behavior spec.md §5
// describes ("a lost race into a deterministic insert error") against a
// real relational unique constraint instead of a Mongo partial unique
// index. Error detection is grounded in the pack's own pattern of matching
// *pgconn.PgError by SQLSTATE (jordigilh-kubernaut's
// notification_audit_repository, DD-010 "migrated from lib/pq" to
// jackc/pgx/v5).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/veridoc/pipeline/source"
	"github.com/veridoc/pipeline/store"
)

// Open connects sqlx to dsn using the pgx stdlib driver, matching the
// pack's "jackc/pgx via database/sql" usage rather than a pgxpool-native
// surface (jordigilh-kubernaut's repositories take a plain *sql.DB).
func Open(dsn string) (*sqlx.DB, error) {
	return sqlx.Open("pgx", dsn)
}

// uniqueViolation is the Postgres SQLSTATE for a unique-constraint conflict.
const uniqueViolation = "23505"

// Schema is the DDL this binding expects. The core never owns migrations
// (spec.md §1 Out-of-scope); this is documentation for the surface that
// deploys the alternate store, not something this package executes.
const Schema = `
CREATE TABLE IF NOT EXISTS file_history (
	workflow_id  TEXT NOT NULL,
	cache_key    TEXT NOT NULL,
	file_path    TEXT NOT NULL,
	status       TEXT NOT NULL,
	result       JSONB,
	is_completed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (workflow_id, cache_key, file_path)
);

CREATE TABLE IF NOT EXISTS workflow_executions (
	execution_id  TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	error_message TEXT
);

CREATE TABLE IF NOT EXISTS workflow_file_executions (
	id                    BIGSERIAL PRIMARY KEY,
	workflow_execution_id TEXT NOT NULL,
	organization_id       TEXT NOT NULL,
	file_hash             TEXT NOT NULL DEFAULT '',
	file_path             TEXT NOT NULL,
	provider_file_uuid    TEXT NOT NULL DEFAULT '',
	status                TEXT NOT NULL,
	execution_time_ms     BIGINT NOT NULL DEFAULT 0,
	execution_error       TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS workflow_file_executions_hash_uq
	ON workflow_file_executions (workflow_execution_id, file_hash, file_path)
	WHERE file_hash <> '';
CREATE UNIQUE INDEX IF NOT EXISTS workflow_file_executions_uuid_uq
	ON workflow_file_executions (workflow_execution_id, provider_file_uuid, file_path)
	WHERE provider_file_uuid <> '';
CREATE INDEX IF NOT EXISTS workflow_file_executions_org_status
	ON workflow_file_executions (organization_id, status);
`

type client struct {
	db      *sqlx.DB
	timeout time.Duration
}

// New returns a store.Repository backed by Postgres via database/sql + pgx
// (the stdlib driver) + sqlx, matching the teacher's other sql.DB-based
// repositories (grounded in jordigilh-kubernaut's NewNotificationAuditRepository(db *sql.DB, ...)
// constructor shape, adapted to sqlx for the multi-row history/claim
// queries this store needs).
func New(db *sqlx.DB, timeout time.Duration) store.Repository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &client{db: db, timeout: timeout}
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// IsCompleted implements source.HistoryStore.
func (c *client) IsCompleted(ctx context.Context, workflowID, cacheKey, filePath string) (bool, error) {
	if cacheKey == "" {
		return false, nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var isCompleted bool
	err := c.db.GetContext(ctx, &isCompleted, `
		SELECT is_completed FROM file_history
		WHERE workflow_id = $1 AND cache_key = $2 AND file_path = $3`,
		workflowID, cacheKey, filePath)
	if errors.Is(err, errNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isCompleted, nil
}

// InFlight implements source.InFlightStore.
func (c *client) InFlight(ctx context.Context, q source.InFlightQuery) (bool, error) {
	if q.FileHash == "" && q.ProviderFileUUID == "" {
		return false, nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var n int
	err := c.db.GetContext(ctx, &n, `
		SELECT count(*) FROM workflow_file_executions
		WHERE organization_id = $1
		  AND workflow_execution_id = $2
		  AND file_path = $3
		  AND status IN ('PENDING', 'EXECUTING', 'QUEUED')
		  AND ((file_hash <> '' AND file_hash = $4) OR (provider_file_uuid <> '' AND provider_file_uuid = $5))`,
		q.OrganizationID, q.WorkflowID, q.FilePath, q.FileHash, q.ProviderFileUUID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordHistory implements store.Repository.
func (c *client) RecordHistory(ctx context.Context, h store.FileHistory) error {
	if h.WorkflowID == "" || h.CacheKey == "" || h.FilePath == "" {
		return errors.New("workflow id, cache key, and file path are required")
	}
	if h.IsCompleted && len(h.Result) == 0 {
		return errors.New("completed file history must carry a non-empty result")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO file_history (workflow_id, cache_key, file_path, status, result, is_completed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workflow_id, cache_key, file_path)
		DO UPDATE SET status = EXCLUDED.status, result = EXCLUDED.result, is_completed = EXCLUDED.is_completed`,
		h.WorkflowID, h.CacheKey, h.FilePath, h.Status, jsonOrNil(h.Result), h.IsCompleted)
	return err
}

// ClaimFileExecution implements store.Repository. A concurrent claim on the
// same unique key surfaces as a deterministic insert error, translated to
// store.ErrAlreadyClaimed rather than left as an opaque driver error
// (spec.md §5).
func (c *client) ClaimFileExecution(ctx context.Context, wfe store.WorkflowFileExecution) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var id int64
	err := c.db.GetContext(ctx, &id, `
		INSERT INTO workflow_file_executions
			(workflow_execution_id, organization_id, file_hash, file_path, provider_file_uuid, status, execution_time_ms, execution_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		wfe.WorkflowExecutionID, wfe.OrganizationID, wfe.FileHash, wfe.FilePath, wfe.ProviderFileUUID,
		string(wfe.Status), wfe.ExecutionTimeMS, wfe.ExecutionError)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", store.ErrAlreadyClaimed
		}
		return "", err
	}
	return fmt.Sprintf("%d", id), nil
}

// UpdateFileExecutionStatus implements store.Repository. Existing metadata
// wins (spec.md §4.8.2, §9 open question): the UPDATE only overwrites
// execution_time_ms when the caller supplies a positive value and the
// stored value is still zero.
func (c *client) UpdateFileExecutionStatus(ctx context.Context, id string, status store.FileExecutionStatus, executionTimeMS int64, executionError string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.db.ExecContext(ctx, `
		UPDATE workflow_file_executions
		SET status = $1,
		    execution_error = $2,
		    execution_time_ms = CASE WHEN $3 > 0 AND execution_time_ms = 0 THEN $3 ELSE execution_time_ms END
		WHERE id = $4`,
		string(status), executionError, executionTimeMS, id)
	return err
}

// UpdateWorkflowStatus implements store.Repository.
func (c *client) UpdateWorkflowStatus(ctx context.Context, executionID string, status store.WorkflowStatus, errorMessage string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (execution_id, status, error_message)
		VALUES ($1, $2, $3)
		ON CONFLICT (execution_id) DO UPDATE SET status = EXCLUDED.status, error_message = EXCLUDED.error_message`,
		executionID, string(status), errorMessage)
	return err
}

// GetWorkflowStatus implements store.Repository.
func (c *client) GetWorkflowStatus(ctx context.Context, executionID string) (store.WorkflowStatus, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var status string
	err := c.db.GetContext(ctx, &status, `SELECT status FROM workflow_executions WHERE execution_id = $1`, executionID)
	if errors.Is(err, errNoRows) {
		return store.WorkflowPending, nil
	}
	if err != nil {
		return "", err
	}
	return store.WorkflowStatus(status), nil
}
