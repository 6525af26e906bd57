package stream

import (
	"context"
	"time"
)

// Repository defines the interface for stream data access.
// This interface is defined in the domain layer, but implemented in the
// infrastructure layer.
type Repository interface {
	// Create inserts a new active stream for ispb, failing with
	// ErrTooManyStreams when maxActive streams are already active for
	// that ispb. The count and the insert must be serialized so two
	// racing calls cannot both slip under the cap.
	Create(ctx context.Context, ispb, streamID string, maxActive int) (*Stream, error)

	// GetByID returns the stream with the given id, or ErrStreamNotFound.
	GetByID(ctx context.Context, streamID string) (*Stream, error)

	// Touch refreshes the stream's last-activity timestamp.
	Touch(ctx context.Context, streamID string) error

	// Terminate atomically marks every undelivered message assigned to
	// the stream as delivered and deactivates the stream. Calling it
	// again after success is a no-op that still succeeds. Returns
	// ErrStreamNotFound for an unknown id.
	Terminate(ctx context.Context, streamID string) error

	// ReclaimExpired deactivates active streams whose last activity is
	// before cutoff, releases their undelivered claims, and returns how
	// many streams were deactivated.
	ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error)
}
