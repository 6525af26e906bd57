package testdata

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"pixpull/internal/domain/message"
	"pixpull/internal/shared/docbr"
)

var bankNames = []string{
	"Banco do Brasil",
	"Itaú",
	"Bradesco",
	"Santander",
	"Caixa",
	"Nubank",
	"Inter",
	"BTG Pactual",
}

var firstNames = []string{
	"Maria", "João", "Ana", "Pedro", "Juliana", "Carlos",
	"Fernanda", "Lucas", "Beatriz", "Rafael", "Camila", "Gustavo",
}

var lastNames = []string{
	"Silva", "Santos", "Oliveira", "Souza", "Lima", "Pereira",
	"Costa", "Almeida", "Ferreira", "Rodrigues", "Gomes", "Martins",
}

var companySuffixes = []string{"Ltda", "S.A.", "Inc."}

var accountTypes = []string{"CACC", "SVGS"}

var transactionDescriptions = []string{
	"Pagamento de serviço",
	"Transferência",
	"Compra online",
	"Pagamento de fatura",
	"Depósito",
	"Pagamento de boleto",
	"Transferência PIX",
	"Pagamento de aluguel",
	"Pagamento de salário",
	"Reembolso",
}

// Generator seeds the store with random PIX messages so pollers have
// something to pull during development and load testing.
type Generator struct {
	messages message.Repository
	holders  message.HolderRepository
}

func NewGenerator(messages message.Repository, holders message.HolderRepository) *Generator {
	return &Generator{messages: messages, holders: holders}
}

// CreateMessages generates count random messages addressed to ispb and
// persists them. It returns the total amount across the created messages.
func (g *Generator) CreateMessages(ctx context.Context, ispb string, count int) (float64, error) {
	var total float64
	for i := 0; i < count; i++ {
		payer, err := g.holders.Upsert(ctx, randomHolderParams(""))
		if err != nil {
			return total, fmt.Errorf("failed to create payer: %w", err)
		}
		receiver, err := g.holders.Upsert(ctx, randomHolderParams(ispb))
		if err != nil {
			return total, fmt.Errorf("failed to create receiver: %w", err)
		}

		params := message.CreateParams{
			EndToEndID:        uuid.New().String(),
			Valor:             randomAmount(),
			PayerID:           payer.ID,
			ReceiverID:        receiver.ID,
			CampoLivre:        randomDescription(),
			TxID:              randomTxID(),
			DataHoraPagamento: randomPaymentTime(),
		}
		if _, err := g.messages.Insert(ctx, params); err != nil {
			return total, fmt.Errorf("failed to insert message: %w", err)
		}
		total += params.Valor
	}
	return total, nil
}

func randomHolderParams(ispb string) message.HolderParams {
	var nome, cpfCnpj string
	if rand.Float64() < 0.7 {
		nome = firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))]
		cpfCnpj = docbr.GenerateCPF()
	} else {
		nome = bankNames[rand.Intn(len(bankNames))] + " " + companySuffixes[rand.Intn(len(companySuffixes))]
		cpfCnpj = docbr.GenerateCNPJ()
	}
	if ispb == "" {
		ispb = randomISPB()
	}
	return message.HolderParams{
		Nome:              nome,
		CpfCnpj:           cpfCnpj,
		ISPB:              ispb,
		Agencia:           randomDigits(4),
		ContaTransacional: randomDigits(5 + rand.Intn(6)),
		TipoConta:         accountTypes[rand.Intn(len(accountTypes))],
	}
}

func randomISPB() string {
	return randomDigits(8)
}

func randomDigits(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}

func randomAmount() float64 {
	return math.Round((1.0+rand.Float64()*9999.0)*100) / 100
}

func randomTxID() string {
	id := uuid.New().String()
	return id[:30]
}

func randomPaymentTime() time.Time {
	ago := time.Duration(rand.Int63n(int64(30 * 24 * time.Hour)))
	return time.Now().Add(-ago)
}

func randomDescription() *string {
	if rand.Float64() >= 0.8 {
		return nil
	}
	d := transactionDescriptions[rand.Intn(len(transactionDescriptions))]
	return &d
}
