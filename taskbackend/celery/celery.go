// Package celery implements taskbackend.Backend over Redis using a message
// shape compatible with Celery's JSON task protocol: a task body published
// to the Redis list backing its queue, with simple worker consumers both
// here and on the Python side able to dequeue it, and a per-task reply key
// used to shuttle the ExecutionResult back to Dispatch.
package celery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/veridoc/pipeline/execution"
	"github.com/veridoc/pipeline/taskbackend"
)

// message is the wire body pushed onto the Redis list for a queue. It
// mirrors the fields of a Celery task envelope that this system cares
// about: the task name, a single positional kwargs payload (the
// ExecutionContext, wire-encoded), and the reply key result delivery uses.
type message struct {
	ID       string          `json:"id"`
	Task     string          `json:"task"`
	Kwargs   json.RawMessage `json:"kwargs"`
	ReplyKey string          `json:"reply_key"`
}

// replyKeyPrefix namespaces per-task result keys so they don't collide with
// other uses of the same Redis database.
const replyKeyPrefix = "celery-task-meta-"

// Runner executes a single ExecutionContext and returns its result. Only
// needed by Consume, the worker-side loop; Dispatch/DispatchAsync act
// purely as a client.
type Runner interface {
	Execute(ctx context.Context, task execution.ExecutionContext) execution.ExecutionResult
}

// Backend is a taskbackend.Backend over a Redis broker/result-backend pair,
// matching the classic Celery deployment where broker and backend are often
// the same Redis instance.
type Backend struct {
	rdb     *redis.Client
	runner  Runner
	breaker *taskbackend.Breaker
	retry   taskbackend.RetryPolicy
}

// New constructs a Backend over rdb. runner may be nil for a pure client
// (a process that only dispatches, never consumes).
func New(rdb *redis.Client, runner Runner) (*Backend, error) {
	if rdb == nil {
		return nil, fmt.Errorf("taskbackend/celery: redis client is required")
	}
	return &Backend{
		rdb:     rdb,
		runner:  runner,
		breaker: taskbackend.NewBreaker("celery-redis", nil),
		retry:   taskbackend.DefaultRetryPolicy(),
	}, nil
}

// Dispatch publishes task and blocks for its reply. Publishing is retried
// per b.retry (spec.md §7) when the broker round trip fails with a
// connection-classed error; a reply that never arrives within timeout is
// not retried, since the task may already be running on a worker. Any
// failure here — exhausted publish retries, BLPOP timeout, or a malformed
// reply — comes back as a failure ExecutionResult, never a Go error
// (spec.md §4.4, §8.2).
func (b *Backend) Dispatch(ctx context.Context, task execution.ExecutionContext, timeout time.Duration) (execution.ExecutionResult, error) {
	start := time.Now()

	var replyKey string
	err := b.retry.Do(ctx, func() error {
		var pubErr error
		replyKey, pubErr = b.publish(ctx, task)
		return pubErr
	})
	if err != nil {
		return taskbackend.TimeoutFailure(fmt.Errorf("taskbackend/celery: publish task: %w", err), time.Since(start)), nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := b.rdb.BLPop(waitCtx, timeout, replyKey).Result()
	if err != nil {
		return taskbackend.TimeoutFailure(fmt.Errorf("taskbackend/celery: await result on %s: %w", replyKey, err), time.Since(start)), nil
	}
	if len(raw) != 2 {
		return taskbackend.TimeoutFailure(fmt.Errorf("taskbackend/celery: malformed BLPOP reply for %s", replyKey), time.Since(start)), nil
	}

	result, err := execution.ResultFromWire([]byte(raw[1]))
	if err != nil {
		return taskbackend.TimeoutFailure(fmt.Errorf("taskbackend/celery: decode result on %s: %w", replyKey, err), time.Since(start)), nil
	}
	return result, nil
}

func (b *Backend) DispatchAsync(ctx context.Context, task execution.ExecutionContext) (string, error) {
	replyKey, err := b.publish(ctx, task)
	if err != nil {
		return "", err
	}
	return replyKey, nil
}

func (b *Backend) publish(ctx context.Context, task execution.ExecutionContext) (string, error) {
	payload, err := task.ToWire()
	if err != nil {
		return "", fmt.Errorf("taskbackend/celery: encode task: %w", err)
	}
	taskID := uuid.NewString()
	replyKey := replyKeyPrefix + taskID
	msg := message{
		ID:       taskID,
		Task:     taskbackend.TaskName(task.Operation),
		Kwargs:   payload,
		ReplyKey: replyKey,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("taskbackend/celery: encode envelope: %w", err)
	}
	queue := taskbackend.Queue(task.Operation)
	if err := b.rdb.LPush(ctx, queue, body).Err(); err != nil {
		return "", fmt.Errorf("taskbackend/celery: publish to %q: %w", queue, err)
	}
	return replyKey, nil
}

// Consume runs a blocking dequeue loop on queue until ctx is cancelled,
// executing each task via the configured Runner and writing its result
// back to the task's reply key so a blocked Dispatch caller can collect it.
func (b *Backend) Consume(ctx context.Context, queue string) error {
	if b.runner == nil {
		return fmt.Errorf("taskbackend/celery: no runner configured, cannot consume")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := b.rdb.BRPop(ctx, 5*time.Second, queue).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("taskbackend/celery: consume %q: %w", queue, err)
		}
		if len(raw) != 2 {
			continue
		}
		var msg message
		if err := json.Unmarshal([]byte(raw[1]), &msg); err != nil {
			continue
		}
		b.handle(ctx, msg)
	}
}

func (b *Backend) handle(ctx context.Context, msg message) {
	task, err := execution.ContextFromWire([]byte(msg.Kwargs))
	var result execution.ExecutionResult
	if err != nil {
		result = execution.Failure(fmt.Sprintf("taskbackend/celery: decode task %s: %v", msg.ID, err))
	} else {
		result = b.runner.Execute(ctx, task)
	}
	body, err := result.ToWire()
	if err != nil {
		return
	}
	b.rdb.LPush(ctx, msg.ReplyKey, body)
	b.rdb.Expire(ctx, msg.ReplyKey, time.Hour)
}

func (b *Backend) HealthCheck(ctx context.Context) taskbackend.Report {
	return taskbackend.RunProbes(ctx,
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "configuration", Healthy: b.rdb != nil}
		},
		func(context.Context) taskbackend.Probe {
			return taskbackend.Probe{Name: "dependencies", Healthy: true}
		},
		func(ctx context.Context) taskbackend.Probe {
			return b.breaker.Probe(ctx, func(ctx context.Context) error {
				return b.rdb.Ping(ctx).Err()
			})
		},
	)
}

func (b *Backend) Close(context.Context) error {
	return b.rdb.Close()
}
