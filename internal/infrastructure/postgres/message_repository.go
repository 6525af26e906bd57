package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"pixpull/internal/domain/message"
)

type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Insert(ctx context.Context, params message.CreateParams) (*message.PixMessage, error) {
	query := `
		INSERT INTO pix_messages (end_to_end_id, valor, payer_id, receiver_id, campo_livre, tx_id, data_hora_pagamento)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, end_to_end_id, valor, payer_id, receiver_id, campo_livre, tx_id, data_hora_pagamento, created_at, delivered, stream_id
	`

	var m message.PixMessage
	var campoLivre, streamID sql.NullString
	err := r.db.QueryRowContext(ctx, query,
		params.EndToEndID, params.Valor, params.PayerID, params.ReceiverID,
		params.CampoLivre, params.TxID, params.DataHoraPagamento,
	).Scan(
		&m.ID, &m.EndToEndID, &m.Valor, &m.PayerID, &m.ReceiverID,
		&campoLivre, &m.TxID, &m.DataHoraPagamento, &m.CreatedAt, &m.Delivered, &streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if campoLivre.Valid {
		m.CampoLivre = &campoLivre.String
	}
	if streamID.Valid {
		m.StreamID = &streamID.String
	}

	return &m, nil
}

// ClaimForStream selects up to limit undelivered, unassigned messages
// whose receiver belongs to ispb, stamps them with streamID and returns
// them with payer and receiver data, ordered by payment timestamp.
//
// Selection and stamping happen in one transaction. FOR UPDATE SKIP
// LOCKED makes concurrent pollers skip rows another transaction is in
// the middle of claiming, so a message can never end up on two streams.
func (r *MessageRepository) ClaimForStream(ctx context.Context, streamID, ispb string, limit int) ([]*message.PixMessage, error) {
	var claimed []*message.PixMessage
	err := r.db.WithTx(ctx, "message.ClaimForStream", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT m.id
			FROM pix_messages m
			JOIN account_holders rec ON rec.id = m.receiver_id
			WHERE NOT m.delivered
			  AND m.stream_id IS NULL
			  AND rec.ispb = $1
			ORDER BY m.data_hora_pagamento
			LIMIT $2
			FOR UPDATE OF m SKIP LOCKED
		`, ispb, limit)
		if err != nil {
			return fmt.Errorf("failed to select claimable messages: %w", err)
		}

		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan message id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("error iterating claimable messages: %w", err)
		}
		rows.Close()

		if len(ids) == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE pix_messages SET stream_id = $1 WHERE id = ANY($2)`,
			streamID, pq.Array(ids),
		)
		if err != nil {
			return fmt.Errorf("failed to stamp stream id: %w", err)
		}

		claimed, err = loadMessages(ctx, tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// loadMessages reads full message rows, payer and receiver included,
// ordered by payment timestamp.
func loadMessages(ctx context.Context, tx *sql.Tx, ids []int64) ([]*message.PixMessage, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT m.id, m.end_to_end_id, m.valor, m.campo_livre, m.tx_id,
		       m.data_hora_pagamento, m.created_at, m.delivered, m.stream_id,
		       p.id, p.nome, p.cpf_cnpj, p.ispb, p.agencia, p.conta_transacional, p.tipo_conta, p.created_at,
		       rec.id, rec.nome, rec.cpf_cnpj, rec.ispb, rec.agencia, rec.conta_transacional, rec.tipo_conta, rec.created_at
		FROM pix_messages m
		JOIN account_holders p ON p.id = m.payer_id
		JOIN account_holders rec ON rec.id = m.receiver_id
		WHERE m.id = ANY($1)
		ORDER BY m.data_hora_pagamento
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed messages: %w", err)
	}
	defer rows.Close()

	var messages []*message.PixMessage
	for rows.Next() {
		var m message.PixMessage
		var pagador, recebedor message.AccountHolder
		var campoLivre, streamID sql.NullString

		err := rows.Scan(
			&m.ID, &m.EndToEndID, &m.Valor, &campoLivre, &m.TxID,
			&m.DataHoraPagamento, &m.CreatedAt, &m.Delivered, &streamID,
			&pagador.ID, &pagador.Nome, &pagador.CpfCnpj, &pagador.ISPB,
			&pagador.Agencia, &pagador.ContaTransacional, &pagador.TipoConta, &pagador.CreatedAt,
			&recebedor.ID, &recebedor.Nome, &recebedor.CpfCnpj, &recebedor.ISPB,
			&recebedor.Agencia, &recebedor.ContaTransacional, &recebedor.TipoConta, &recebedor.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		if campoLivre.Valid {
			m.CampoLivre = &campoLivre.String
		}
		if streamID.Valid {
			m.StreamID = &streamID.String
		}
		m.PayerID = pagador.ID
		m.ReceiverID = recebedor.ID
		m.Pagador = &pagador
		m.Recebedor = &recebedor

		messages = append(messages, &m)
	}

	return messages, rows.Err()
}
