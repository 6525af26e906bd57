// Package delivery implements the long-poll message delivery engine:
// it resolves or creates a stream, then repeatedly claims eligible
// messages until something is found, the wait elapses or the request
// is cancelled.
package delivery

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"pixpull/internal/domain/message"
	"pixpull/internal/domain/stream"
)

const (
	// DefaultMaxWait bounds a single fetch call.
	DefaultMaxWait = 8 * time.Second
	// DefaultPollInterval is the pause between claim attempts.
	DefaultPollInterval = 500 * time.Millisecond
	// batchLimit caps a multi-message fetch.
	batchLimit = 10
)

var (
	deliveryMeter      = otel.Meter("pixpull/delivery")
	messagesClaimed, _ = deliveryMeter.Int64Counter("delivery.messages.claimed", metric.WithDescription("Messages claimed by polling streams"))
	emptyPolls, _      = deliveryMeter.Int64Counter("delivery.polls.empty", metric.WithDescription("Fetch calls that timed out with no messages"))
)

// StreamService is the slice of the stream manager the engine needs.
type StreamService interface {
	Acquire(ctx context.Context, ispb string) (string, error)
	Resolve(ctx context.Context, streamID string) (*stream.Stream, error)
	Terminate(ctx context.Context, streamID string) error
}

// Service contains the business logic for fetching and acknowledging
// messages.
type Service struct {
	streams      StreamService
	messages     message.Repository
	pollInterval time.Duration
	maxWait      time.Duration
}

// NewService creates a new delivery service. Non-positive durations fall
// back to the defaults.
func NewService(streams StreamService, messages message.Repository, pollInterval, maxWait time.Duration) *Service {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Service{
		streams:      streams,
		messages:     messages,
		pollInterval: pollInterval,
		maxWait:      maxWait,
	}
}

// Fetch resolves streamID (or acquires a new stream when streamID is
// empty) and long-polls for claimable messages, up to maxWait
// (non-positive means the configured default). It returns as soon as at
// least one message is claimed; an elapsed wait is a normal empty result,
// not an error. Stream errors (capacity, not found, gone) propagate
// before any waiting happens.
//
// Each iteration's claim is committed atomically by the repository, so a
// cancellation between iterations never rolls back messages already
// stamped with this stream.
func (s *Service) Fetch(ctx context.Context, ispb, streamID string, maxWait time.Duration, single bool) ([]*message.PixMessage, string, error) {
	if streamID == "" {
		id, err := s.streams.Acquire(ctx, ispb)
		if err != nil {
			return nil, "", err
		}
		streamID = id
	} else {
		if _, err := s.streams.Resolve(ctx, streamID); err != nil {
			return nil, "", err
		}
	}

	limit := batchLimit
	if single {
		limit = 1
	}
	if maxWait <= 0 {
		maxWait = s.maxWait
	}

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	for {
		msgs, err := s.messages.ClaimForStream(ctx, streamID, ispb, limit)
		if err != nil {
			return nil, streamID, err
		}
		if len(msgs) > 0 {
			messagesClaimed.Add(ctx, int64(len(msgs)),
				metric.WithAttributes(attribute.String("ispb", ispb)))
			return msgs, streamID, nil
		}

		interval := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			interval.Stop()
			return nil, streamID, ctx.Err()
		case <-deadline.C:
			interval.Stop()
			emptyPolls.Add(ctx, 1, metric.WithAttributes(attribute.String("ispb", ispb)))
			return nil, streamID, nil
		case <-interval.C:
		}
	}
}

// Acknowledge confirms receipt of everything delivered through the
// stream: all its messages are marked delivered and the stream is
// deactivated. This is the sole acknowledgment path.
func (s *Service) Acknowledge(ctx context.Context, streamID string) error {
	return s.streams.Terminate(ctx, streamID)
}
