package postgres

import (
	"context"
	"fmt"

	"pixpull/internal/domain/message"
)

type AccountHolderRepository struct {
	db *DB
}

func NewAccountHolderRepository(db *DB) *AccountHolderRepository {
	return &AccountHolderRepository{db: db}
}

// Upsert creates an account holder or refreshes the existing row with
// the same (cpf_cnpj, ispb) pair.
func (r *AccountHolderRepository) Upsert(ctx context.Context, params message.HolderParams) (*message.AccountHolder, error) {
	query := `
		INSERT INTO account_holders (nome, cpf_cnpj, ispb, agencia, conta_transacional, tipo_conta)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cpf_cnpj, ispb) DO UPDATE
			SET nome = EXCLUDED.nome,
			    agencia = EXCLUDED.agencia,
			    conta_transacional = EXCLUDED.conta_transacional,
			    tipo_conta = EXCLUDED.tipo_conta
		RETURNING id, nome, cpf_cnpj, ispb, agencia, conta_transacional, tipo_conta, created_at
	`

	var h message.AccountHolder
	err := r.db.QueryRowContext(ctx, query,
		params.Nome, params.CpfCnpj, params.ISPB, params.Agencia, params.ContaTransacional, params.TipoConta,
	).Scan(
		&h.ID, &h.Nome, &h.CpfCnpj, &h.ISPB, &h.Agencia, &h.ContaTransacional, &h.TipoConta, &h.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account holder: %w", err)
	}

	return &h, nil
}
