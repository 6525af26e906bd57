package stream

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service contains the business logic for stream lifecycle: acquisition
// under the per-ISPB cap, resolution with activity tracking, termination
// and expiry reclamation.
type Service struct {
	repo      Repository
	maxActive int
}

// NewService creates a new stream service. maxActive <= 0 falls back to
// DefaultMaxActive.
func NewService(repo Repository, maxActive int) *Service {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Service{repo: repo, maxActive: maxActive}
}

// Acquire creates a new active stream for ispb and returns its opaque
// identifier. Returns ErrTooManyStreams when the institution already has
// the maximum number of active streams.
func (s *Service) Acquire(ctx context.Context, ispb string) (string, error) {
	streamID := uuid.New().String()

	st, err := s.repo.Create(ctx, ispb, streamID, s.maxActive)
	if err != nil {
		return "", err
	}
	return st.StreamID, nil
}

// Resolve looks up an existing stream, refreshes its activity timestamp
// and returns it. Returns ErrStreamNotFound for an unknown id and
// ErrStreamGone for a known but deactivated one.
func (s *Service) Resolve(ctx context.Context, streamID string) (*Stream, error) {
	st, err := s.repo.GetByID(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if !st.IsActive {
		return nil, ErrStreamGone
	}
	if err := s.repo.Touch(ctx, streamID); err != nil {
		return nil, err
	}
	return st, nil
}

// Get looks up a stream without touching its activity timestamp. Used
// by callers that only need ownership checks (e.g. stream termination).
func (s *Service) Get(ctx context.Context, streamID string) (*Stream, error) {
	return s.repo.GetByID(ctx, streamID)
}

// Terminate marks every message assigned to the stream as delivered and
// deactivates it, in one atomic unit. Idempotent.
func (s *Service) Terminate(ctx context.Context, streamID string) error {
	return s.repo.Terminate(ctx, streamID)
}

// ReclaimExpired deactivates streams idle for longer than timeout and
// releases their undelivered claims so the messages become claimable by
// new streams. Returns the number of streams deactivated.
func (s *Service) ReclaimExpired(ctx context.Context, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = DefaultInactivityTimeout
	}
	return s.repo.ReclaimExpired(ctx, time.Now().Add(-timeout))
}
