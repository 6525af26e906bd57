package message

import "context"

// Repository defines the interface for message data access.
// This interface is defined in the domain layer, but implemented in the
// infrastructure layer.
type Repository interface {
	// Insert persists a new undelivered, unassigned message.
	Insert(ctx context.Context, params CreateParams) (*PixMessage, error)

	// ClaimForStream atomically selects up to limit undelivered, unassigned
	// messages whose receiver belongs to ispb, stamps them with streamID,
	// and returns them ordered by payment timestamp ascending. Selection
	// and stamping are committed together: a message claimed here can never
	// be claimed by a concurrent call for a different stream.
	ClaimForStream(ctx context.Context, streamID, ispb string, limit int) ([]*PixMessage, error)
}

// HolderRepository defines the interface for account holder data access.
type HolderRepository interface {
	// Upsert creates an account holder or updates the existing row with
	// the same (cpfCnpj, ispb) pair.
	Upsert(ctx context.Context, params HolderParams) (*AccountHolder, error)
}
