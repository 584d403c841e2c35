package platform

import "context"

// FinalStatus is a WorkflowExecution terminal status. Notifications only
// fire on these three (spec.md §7 "User-visible failure behavior").
type FinalStatus string

const (
	FinalStatusCompleted FinalStatus = "COMPLETED"
	FinalStatusError     FinalStatus = "ERROR"
	FinalStatusStopped   FinalStatus = "STOPPED"
)

// NotificationEvent is the final-state webhook payload. Delivery transport
// (HTTP signing, retries, backoff) is out of scope; this is the contract a
// caller publishes against.
type NotificationEvent struct {
	WorkflowID    string
	ExecutionID   string
	Status        FinalStatus
	ErrorMessage  string
	TotalFiles    int
	ExecutionTime float64
}

// Notifier publishes final-state events. The core calls Notify exactly
// once per workflow execution, after status settles into one of the three
// FinalStatus values.
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent) error
}

// NoopNotifier discards every event. Used where no webhook is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, NotificationEvent) error { return nil }
