package stream

import (
	"errors"
	"time"
)

// DefaultMaxActive is the cap on concurrently active streams per ISPB.
const DefaultMaxActive = 6

// DefaultInactivityTimeout is how long an idle stream survives before
// the sweep reclaims it.
const DefaultInactivityTimeout = 30 * time.Minute

// Domain errors
var (
	ErrTooManyStreams  = errors.New("maximum number of active streams reached for this ispb")
	ErrStreamNotFound  = errors.New("stream not found")
	ErrStreamGone      = errors.New("stream is no longer active")
	ErrStreamForbidden = errors.New("stream does not belong to this ispb")
)

// Stream is a client's polling session scoped to one institution.
type Stream struct {
	ID         int64     `json:"id"`
	StreamID   string    `json:"streamId"`
	ISPB       string    `json:"ispb"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	IsActive   bool      `json:"isActive"`
}
