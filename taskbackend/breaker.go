package taskbackend

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a single named gobreaker.CircuitBreaker around a backend's
// connection probe, grounded in jordigilh-kubernaut's per-channel circuit
// breaker manager (BR-NOT-055): three consecutive failures trips the
// breaker, and probes fail fast instead of waiting out a hung broker until
// the breaker's timeout elapses and it allows a trial request through.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker constructs a Breaker named name. onStateChange may be nil.
func NewBreaker(name string, onStateChange func(name string, from, to gobreaker.State)) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	if onStateChange != nil {
		settings.OnStateChange = onStateChange
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Probe runs check through the circuit breaker, returning a backend_connection
// Probe. A tripped breaker fails the probe immediately without invoking check.
func (b *Breaker) Probe(ctx context.Context, check func(context.Context) error) Probe {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, check(ctx)
	})
	if err != nil {
		return Probe{Name: "backend_connection", Healthy: false, Message: err.Error()}
	}
	return Probe{Name: "backend_connection", Healthy: true}
}

// State reports the breaker's current state for diagnostics.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
