package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"
)

// pulseLogEventKey and pulseUpdateEventKey name the Pulse event types
// published on the per-execution channel (spec.md §4.12).
const (
	pulseLogEventKey    = "log"
	pulseUpdateEventKey = "update"
)

// PulseStream is the subset of goa.design/pulse streaming this publisher
// needs: publish events to a named stream, creating it on first use.
type PulseStream interface {
	Add(ctx context.Context, event string, payload []byte) (string, error)
}

// PulseStreamOpener opens (creating if needed) the Pulse stream backing a
// given channel name.
type PulseStreamOpener interface {
	Stream(name string, opts ...streamopts.Stream) (PulseStream, error)
}

// pulseClient adapts a raw Redis connection to PulseStreamOpener, mirroring
// the layering of the stream/pulse client package: callers hand in a Redis
// connection, streams are created lazily per channel name.
type pulseClient struct {
	redis *redis.Client
}

// NewPulseStreamOpener builds a PulseStreamOpener backed by the given Redis
// connection. This is the transport used by NewPulsePublisher.
func NewPulseStreamOpener(rdb *redis.Client) (PulseStreamOpener, error) {
	if rdb == nil {
		return nil, errors.New("telemetry: redis client is required")
	}
	return &pulseClient{redis: rdb}, nil
}

func (c *pulseClient) Stream(name string, opts ...streamopts.Stream) (PulseStream, error) {
	str, err := streaming.NewStream(name, c.redis, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create pulse stream %q: %w", name, err)
	}
	return streamHandle{stream: str}, nil
}

// streamHandle adapts *streaming.Stream to PulseStream.
type streamHandle struct {
	stream *streaming.Stream
}

func (h streamHandle) Add(ctx context.Context, event string, payload []byte) (string, error) {
	return h.stream.Add(ctx, event, payload)
}

// PulsePublisher publishes LogEvent/UpdateEvent payloads onto a Pulse stream
// keyed by execution-id, matching the channel identity the task layer hands
// down via messaging_channel.
type PulsePublisher struct {
	opener PulseStreamOpener
}

// NewPulsePublisher constructs a Publisher backed by Pulse/Redis streams.
func NewPulsePublisher(opener PulseStreamOpener) (Publisher, error) {
	if opener == nil {
		return nil, errors.New("telemetry: pulse stream opener is required")
	}
	return &PulsePublisher{opener: opener}, nil
}

func (p *PulsePublisher) PublishLog(ctx context.Context, channel string, event LogEvent) error {
	stream, err := p.opener.Stream(channel)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("telemetry: marshal log event: %w", err)
	}
	_, err = stream.Add(ctx, pulseLogEventKey, payload)
	return err
}

func (p *PulsePublisher) PublishUpdate(ctx context.Context, channel string, event UpdateEvent) error {
	stream, err := p.opener.Stream(channel)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("telemetry: marshal update event: %w", err)
	}
	_, err = stream.Add(ctx, pulseUpdateEventKey, payload)
	return err
}
