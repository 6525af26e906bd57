package message

import (
	"errors"
	"time"

	"pixpull/internal/shared/docbr"
)

var (
	// Account types from the PIX message schema (ISO 20022 codes)
	accountTypes = map[string]struct{}{
		"CACC": {}, // checking
		"SVGS": {}, // savings
	}
)

// Domain errors
var (
	ErrInvalidISPB        = errors.New("ispb must be an 8-digit code")
	ErrInvalidCpfCnpj     = errors.New("cpfCnpj must be a valid CPF (11 digits) or CNPJ (14 digits)")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidAmount      = errors.New("valor must be positive")
)

// AccountHolder identifies one participant of a PIX transaction.
// Holders are upserted on the (cpfCnpj, ispb) pair and never deleted.
type AccountHolder struct {
	ID                int64     `json:"id"`
	Nome              string    `json:"nome"`
	CpfCnpj           string    `json:"cpfCnpj"`
	ISPB              string    `json:"ispb"`
	Agencia           string    `json:"agencia"`
	ContaTransacional string    `json:"contaTransacional"`
	TipoConta         string    `json:"tipoConta"`
	CreatedAt         time.Time `json:"createdAt"`
}

// PixMessage is one inbound payment notification. A message starts
// unassigned and undelivered, is stamped with a stream id when a poller
// claims it, and becomes delivered when the owning stream terminates.
type PixMessage struct {
	ID                int64          `json:"id"`
	EndToEndID        string         `json:"endToEndId"`
	Valor             float64        `json:"valor"`
	PayerID           int64          `json:"payerId"`
	ReceiverID        int64          `json:"receiverId"`
	CampoLivre        *string        `json:"campoLivre"`
	TxID              string         `json:"txId"`
	DataHoraPagamento time.Time      `json:"dataHoraPagamento"`
	CreatedAt         time.Time      `json:"createdAt"`
	Delivered         bool           `json:"delivered"`
	StreamID          *string        `json:"streamId"`
	Pagador           *AccountHolder `json:"pagador"`
	Recebedor         *AccountHolder `json:"recebedor"`
}

// HolderParams contains parameters for upserting an account holder.
type HolderParams struct {
	Nome              string
	CpfCnpj           string
	ISPB              string
	Agencia           string
	ContaTransacional string
	TipoConta         string
}

// Validate validates the holder parameters, including the CPF/CNPJ
// check digits.
func (p HolderParams) Validate() error {
	if p.Nome == "" {
		return errors.New("nome is required")
	}
	switch len(p.CpfCnpj) {
	case 11:
		if !docbr.IsValidCPF(p.CpfCnpj) {
			return ErrInvalidCpfCnpj
		}
	case 14:
		if !docbr.IsValidCNPJ(p.CpfCnpj) {
			return ErrInvalidCpfCnpj
		}
	default:
		return ErrInvalidCpfCnpj
	}
	if !IsValidISPB(p.ISPB) {
		return ErrInvalidISPB
	}
	if p.Agencia == "" {
		return errors.New("agencia is required")
	}
	if p.ContaTransacional == "" {
		return errors.New("contaTransacional is required")
	}
	if !IsValidAccountType(p.TipoConta) {
		return ErrInvalidAccountType
	}
	return nil
}

// CreateParams contains parameters for inserting a new message.
type CreateParams struct {
	EndToEndID        string
	Valor             float64
	PayerID           int64
	ReceiverID        int64
	CampoLivre        *string
	TxID              string
	DataHoraPagamento time.Time
}

// Validate validates the create parameters.
func (p CreateParams) Validate() error {
	if p.EndToEndID == "" {
		return errors.New("endToEndId is required")
	}
	if p.Valor <= 0 {
		return ErrInvalidAmount
	}
	if p.PayerID <= 0 || p.ReceiverID <= 0 {
		return errors.New("payer and receiver are required")
	}
	if p.TxID == "" {
		return errors.New("txId is required")
	}
	if p.DataHoraPagamento.IsZero() {
		return errors.New("dataHoraPagamento is required")
	}
	return nil
}

// IsValidISPB checks if s is an 8-digit institution code.
func IsValidISPB(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsValidAccountType checks if the provided account type is valid.
func IsValidAccountType(t string) bool {
	_, ok := accountTypes[t]
	return ok
}
