// Package mongo is the primary Repository binding (spec.md §3), grounded in
// the teacher's session/run Mongo clients: same Options/New shape, same
// ensureIndexes-at-construction discipline, same upsert-by-natural-key
// pattern, generalized from session/run documents to
// WorkflowFileExecution/FileHistory documents.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"goa.design/clue/health"

	"github.com/veridoc/pipeline/source"
	"github.com/veridoc/pipeline/store"
)

const (
	defaultHistoryCollection   = "file_history"
	defaultExecutionCollection = "workflow_file_executions"
	defaultOpTimeout           = 5 * time.Second
	clientName                 = "workflow-store-mongo"
)

// Options configures the Mongo-backed store.Repository.
type Options struct {
	Client              *mongodriver.Client
	Database            string
	HistoryCollection   string
	ExecutionCollection string
	WorkflowCollection  string
	Timeout             time.Duration
}

type client struct {
	mongo      *mongodriver.Client
	history    *mongodriver.Collection
	executions *mongodriver.Collection
	workflows  *mongodriver.Collection
	timeout    time.Duration
}

// New returns a store.Repository backed by MongoDB, plus health.Pinger so it
// composes into the same three-probe health-check shape the task backends
// use (spec.md §4.10).
func New(ctx context.Context, opts Options) (store.Repository, health.Pinger, error) {
	if opts.Client == nil {
		return nil, nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, nil, errors.New("database name is required")
	}
	historyColl := orDefault(opts.HistoryCollection, defaultHistoryCollection)
	execColl := orDefault(opts.ExecutionCollection, defaultExecutionCollection)
	workflowColl := orDefault(opts.WorkflowCollection, "workflow_executions")
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	db := opts.Client.Database(opts.Database)
	c := &client{
		mongo:      opts.Client,
		history:    db.Collection(historyColl),
		executions: db.Collection(execColl),
		workflows:  db.Collection(workflowColl),
		timeout:    timeout,
	}
	if ctx == nil {
		ctx = context.Background()
	}
	idxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.ensureIndexes(idxCtx); err != nil {
		return nil, nil, err
	}
	return c, c, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *client) ensureIndexes(ctx context.Context) error {
	historyIdx := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "workflow_id", Value: 1},
			{Key: "cache_key", Value: 1},
			{Key: "file_path", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := c.history.Indexes().CreateOne(ctx, historyIdx); err != nil {
		return err
	}
	// Unique constraints named in spec.md §3 WorkflowFileExecution: either
	// coordinate pair turns a lost race into a deterministic insert error
	// (spec.md §5).
	hashIdx := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "workflow_execution_id", Value: 1},
			{Key: "file_hash", Value: 1},
			{Key: "file_path", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"file_hash": bson.M{"$gt": ""}}),
	}
	if _, err := c.executions.Indexes().CreateOne(ctx, hashIdx); err != nil {
		return err
	}
	uuidIdx := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "workflow_execution_id", Value: 1},
			{Key: "provider_file_uuid", Value: 1},
			{Key: "file_path", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"provider_file_uuid": bson.M{"$gt": ""}}),
	}
	if _, err := c.executions.Indexes().CreateOne(ctx, uuidIdx); err != nil {
		return err
	}
	orgIdx := mongodriver.IndexModel{
		Keys: bson.D{
			{Key: "organization_id", Value: 1},
			{Key: "status", Value: 1},
		},
	}
	if _, err := c.executions.Indexes().CreateOne(ctx, orgIdx); err != nil {
		return err
	}
	return nil
}

func (c *client) Name() string { return clientName }

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
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
	var doc historyDocument
	err := c.history.FindOne(ctx, bson.M{
		"workflow_id": workflowID,
		"cache_key":   cacheKey,
		"file_path":   filePath,
	}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return doc.IsCompleted, nil
}

// InFlight implements source.InFlightStore: a match on file_hash+
// file_path or provider_file_uuid+file_path, scoped to the organization and
// restricted to non-terminal statuses (spec.md §4.9 step 6).
func (c *client) InFlight(ctx context.Context, q source.InFlightQuery) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var or bson.A
	if q.FileHash != "" {
		or = append(or, bson.M{"file_hash": q.FileHash, "file_path": q.FilePath})
	}
	if q.ProviderFileUUID != "" {
		or = append(or, bson.M{"provider_file_uuid": q.ProviderFileUUID, "file_path": q.FilePath})
	}
	if len(or) == 0 {
		return false, nil
	}
	filter := bson.M{
		"organization_id":       q.OrganizationID,
		"workflow_execution_id": q.WorkflowID,
		"status":                bson.M{"$in": []string{"PENDING", "EXECUTING", "QUEUED"}},
		"$or":                   or,
	}
	n, err := c.executions.CountDocuments(ctx, filter)
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
	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{
		"workflow_id": h.WorkflowID,
		"cache_key":   h.CacheKey,
		"file_path":   h.FilePath,
	}
	update := bson.M{
		"$set": bson.M{
			"status":       h.Status,
			"result":       h.Result,
			"is_completed": h.IsCompleted,
		},
		"$setOnInsert": bson.M{
			"created_at": createdAt,
		},
	}
	_, err := c.history.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ClaimFileExecution implements store.Repository.
func (c *client) ClaimFileExecution(ctx context.Context, wfe store.WorkflowFileExecution) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	doc := bson.M{
		"workflow_execution_id": wfe.WorkflowExecutionID,
		"organization_id":       wfe.OrganizationID,
		"file_hash":             wfe.FileHash,
		"file_path":             wfe.FilePath,
		"provider_file_uuid":    wfe.ProviderFileUUID,
		"status":                string(wfe.Status),
		"execution_time_ms":     wfe.ExecutionTimeMS,
		"execution_error":       wfe.ExecutionError,
	}
	res, err := c.executions.InsertOne(ctx, doc)
	if mongodriver.IsDuplicateKeyError(err) {
		return "", store.ErrAlreadyClaimed
	}
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(interface{ Hex() string }); ok {
		return oid.Hex(), nil
	}
	return "", errors.New("unexpected inserted id type")
}

// UpdateFileExecutionStatus implements store.Repository. Existing metadata
// wins (spec.md §4.8.2, §9 open question): a non-zero execution_time_ms
// already on the row is never overwritten by a writer supplying zero.
func (c *client) UpdateFileExecutionStatus(ctx context.Context, id string, status store.FileExecutionStatus, executionTimeMS int64, executionError string) error {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	set := bson.M{"status": string(status), "execution_error": executionError}
	if _, err = c.executions.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}); err != nil {
		return err
	}
	if executionTimeMS > 0 {
		// A second worker racing to report the same file's timing never
		// overwrites a value a first worker already wrote (spec.md §4.8.2,
		// §9 open question: "existing metadata wins").
		filter := bson.M{"_id": oid, "execution_time_ms": bson.M{"$in": bson.A{nil, 0, int64(0)}}}
		_, err = c.executions.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"execution_time_ms": executionTimeMS}})
	}
	return err
}

// UpdateWorkflowStatus implements store.Repository.
func (c *client) UpdateWorkflowStatus(ctx context.Context, executionID string, status store.WorkflowStatus, errorMessage string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"execution_id": executionID}
	update := bson.M{"$set": bson.M{"status": string(status), "error_message": errorMessage}}
	_, err := c.workflows.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetWorkflowStatus implements store.Repository.
func (c *client) GetWorkflowStatus(ctx context.Context, executionID string) (store.WorkflowStatus, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc struct {
		Status string `bson:"status"`
	}
	err := c.workflows.FindOne(ctx, bson.M{"execution_id": executionID}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return store.WorkflowPending, nil
	}
	if err != nil {
		return "", err
	}
	return store.WorkflowStatus(doc.Status), nil
}

type historyDocument struct {
	IsCompleted bool `bson:"is_completed"`
}
