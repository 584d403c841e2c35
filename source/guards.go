package source

import "context"

// HistoryStore is the file-history guard's dependency (spec.md §4.9 step 5,
// §3 FileHistory): has a completed row already processed this content at
// this path, for this workflow. A connector that has no history backing can
// wire a store that always returns false.
type HistoryStore interface {
	IsCompleted(ctx context.Context, workflowID, cacheKey, filePath string) (bool, error)
}

// InFlightStore is the in-flight guard's dependency (spec.md §4.9 step 6,
// §5 "Locking/transaction discipline"): is there already a
// WorkflowFileExecution row in a non-terminal status for this file. A
// connector that lacks persistence can wire a store that always returns
// false.
type InFlightStore interface {
	InFlight(ctx context.Context, q InFlightQuery) (bool, error)
}

// seenGuard is the within-listing path/name dedup guard (spec.md §4.9
// step 4, §8.1 "Listing dedup"): reject a file whose path or name was
// already accepted in this same listing call. It needs no store — it is
// pure in-memory bookkeeping over one call's results.
type seenGuard struct {
	paths map[string]bool
	names map[string]bool
}

func newSeenGuard() *seenGuard {
	return &seenGuard{paths: map[string]bool{}, names: map[string]bool{}}
}

// Accept reports whether (path, name) is new, and if so marks it seen.
func (g *seenGuard) Accept(path, name string) bool {
	if g.paths[path] || g.names[name] {
		return false
	}
	g.paths[path] = true
	g.names[name] = true
	return true
}

// historyGuard wraps HistoryStore as a skip predicate: true means "skip this
// file, it already has a completed history row" (spec.md §4.9 step 5). A nil
// store or use_file_history=false always returns false (never skips).
type historyGuard struct {
	store   HistoryStore
	enabled bool
}

func (g historyGuard) ShouldSkip(ctx context.Context, workflowID, cacheKey, filePath string) (bool, error) {
	if !g.enabled || g.store == nil || cacheKey == "" {
		return false, nil
	}
	return g.store.IsCompleted(ctx, workflowID, cacheKey, filePath)
}

// inFlightGuard wraps InFlightStore as a skip predicate: true means "skip
// this file, another non-terminal execution already claims it"
// (spec.md §4.9 step 6).
type inFlightGuard struct {
	store InFlightStore
}

func (g inFlightGuard) ShouldSkip(ctx context.Context, q InFlightQuery) (bool, error) {
	if g.store == nil {
		return false, nil
	}
	return g.store.InFlight(ctx, q)
}
