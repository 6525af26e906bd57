package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"pixpull/internal/domain/stream"
)

type StreamRepository struct {
	db *DB
}

func NewStreamRepository(db *DB) *StreamRepository {
	return &StreamRepository{db: db}
}

// Create inserts a new active stream, enforcing the per-ISPB cap.
// The count and the insert run under a per-ISPB advisory lock: a row
// lock cannot exclude a concurrent insert, so two racing acquisitions
// could otherwise both observe count = maxActive-1 and exceed the cap.
func (r *StreamRepository) Create(ctx context.Context, ispb, streamID string, maxActive int) (*stream.Stream, error) {
	var st stream.Stream
	err := r.db.WithTx(ctx, "stream.Create", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ispb); err != nil {
			return fmt.Errorf("failed to lock ispb: %w", err)
		}

		var active int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM message_streams WHERE ispb = $1 AND is_active`,
			ispb,
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("failed to count active streams: %w", err)
		}
		if active >= maxActive {
			return stream.ErrTooManyStreams
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO message_streams (stream_id, ispb)
			VALUES ($1, $2)
			RETURNING id, stream_id, ispb, created_at, last_active, is_active
		`, streamID, ispb).Scan(&st.ID, &st.StreamID, &st.ISPB, &st.CreatedAt, &st.LastActive, &st.IsActive)
	})
	if err == stream.ErrTooManyStreams {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &st, nil
}

func (r *StreamRepository) GetByID(ctx context.Context, streamID string) (*stream.Stream, error) {
	query := `
		SELECT id, stream_id, ispb, created_at, last_active, is_active
		FROM message_streams
		WHERE stream_id = $1
	`

	var st stream.Stream
	err := r.db.QueryRowContext(ctx, query, streamID).Scan(
		&st.ID, &st.StreamID, &st.ISPB, &st.CreatedAt, &st.LastActive, &st.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, stream.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}

	return &st, nil
}

func (r *StreamRepository) Touch(ctx context.Context, streamID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE message_streams SET last_active = NOW() WHERE stream_id = $1`,
		streamID,
	)
	if err != nil {
		return fmt.Errorf("failed to refresh stream activity: %w", err)
	}
	return nil
}

// Terminate marks the stream's undelivered messages as delivered and
// deactivates the stream in one transaction. Re-running it on an
// already-terminated stream touches no message rows and succeeds.
func (r *StreamRepository) Terminate(ctx context.Context, streamID string) error {
	return r.db.WithTx(ctx, "stream.Terminate", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE pix_messages SET delivered = TRUE WHERE stream_id = $1 AND NOT delivered`,
			streamID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark messages delivered: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE message_streams SET is_active = FALSE WHERE stream_id = $1`,
			streamID,
		)
		if err != nil {
			return fmt.Errorf("failed to deactivate stream: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return stream.ErrStreamNotFound
		}
		return nil
	})
}

// ReclaimExpired deactivates streams idle since before cutoff and
// releases their undelivered claims so the messages rejoin the
// claimable pool.
func (r *StreamRepository) ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error) {
	count := 0
	err := r.db.WithTx(ctx, "stream.ReclaimExpired", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			UPDATE message_streams
			SET is_active = FALSE
			WHERE is_active AND last_active < $1
			RETURNING stream_id
		`, cutoff)
		if err != nil {
			return fmt.Errorf("failed to deactivate expired streams: %w", err)
		}
		defer rows.Close()

		var expired []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("failed to scan stream id: %w", err)
			}
			expired = append(expired, id)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating expired streams: %w", err)
		}
		if len(expired) == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE pix_messages SET stream_id = NULL WHERE stream_id = ANY($1) AND NOT delivered`,
			pq.Array(expired),
		)
		if err != nil {
			return fmt.Errorf("failed to release claims: %w", err)
		}

		count = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
