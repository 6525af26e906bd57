package postgres

import (
	"context"
	"fmt"
)

// schemaStatements create the three tables this service owns. Mirrors
// the deployment model of the original service: the API bootstraps its
// own schema on startup, so ordering matters (streams before messages
// because of the stream_id foreign key).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS account_holders (
		id                 BIGSERIAL PRIMARY KEY,
		nome               TEXT        NOT NULL,
		cpf_cnpj           TEXT        NOT NULL,
		ispb               TEXT        NOT NULL,
		agencia            TEXT        NOT NULL,
		conta_transacional TEXT        NOT NULL,
		tipo_conta         TEXT        NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (cpf_cnpj, ispb)
	)`,
	`CREATE TABLE IF NOT EXISTS message_streams (
		id          BIGSERIAL PRIMARY KEY,
		stream_id   TEXT        NOT NULL UNIQUE,
		ispb        TEXT        NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_active   BOOLEAN     NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_message_streams_active_ispb
		ON message_streams (ispb) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS pix_messages (
		id                  BIGSERIAL PRIMARY KEY,
		end_to_end_id       TEXT             NOT NULL UNIQUE,
		valor               DOUBLE PRECISION NOT NULL,
		payer_id            BIGINT           NOT NULL REFERENCES account_holders (id),
		receiver_id         BIGINT           NOT NULL REFERENCES account_holders (id),
		campo_livre         TEXT,
		tx_id               TEXT             NOT NULL,
		data_hora_pagamento TIMESTAMPTZ      NOT NULL,
		created_at          TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		delivered           BOOLEAN          NOT NULL DEFAULT FALSE,
		stream_id           TEXT             REFERENCES message_streams (stream_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pix_messages_undelivered
		ON pix_messages (data_hora_pagamento) WHERE NOT delivered`,
}

// EnsureSchema creates the service's tables and indexes if they do not
// exist yet.
func EnsureSchema(ctx context.Context, db *DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
