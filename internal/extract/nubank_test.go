package extract

import (
	"testing"

	"github.com/finparse/financial-parser/internal/dates"
)

const nubankInvoice = `Nubank
Olá, esta é a sua fatura
JOÃO DA SILVA FATURA
Data de vencimento: 24 NOV 2025
Emissão e envio 10 NOV 2025
Total a pagar R$ 3.038,08

TRANSAÇÕES
17 OUT •••• 2300 Supermercado Pão de Açúcar R$ 250,00
18 OUT •••• 2300 Posto Shell R$ 180,50
18 OUT •••• 2300 Pagamento recebido R$ 1.000,00
`

func TestNubankCanHandle(t *testing.T) {
	e := NewNubankExtractor(dates.NewNormalizer(2025))
	if !e.CanHandle(nubankInvoice) {
		t.Fatal("CanHandle should accept a Nubank invoice")
	}
	if e.CanHandle("um boleto do Bradesco sem nada da fintech roxa") {
		t.Error("CanHandle should reject non-Nubank text")
	}
}

func TestNubankExtract(t *testing.T) {
	e := NewNubankExtractor(dates.NewNormalizer(2025))

	record, err := e.Extract(nubankInvoice)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if record.IssuerName == nil || *record.IssuerName != "Nu Pagamentos S.A." {
		t.Error("issuer name should be Nu Pagamentos S.A.")
	}
	if record.IssuerTaxID == nil || *record.IssuerTaxID != "18.236.120/0001-58" {
		t.Error("issuer tax id should be the Nubank CNPJ")
	}
	if record.DueDate == nil || *record.DueDate != "2025-11-24" {
		t.Errorf("due date = %v, want 2025-11-24", record.DueDate)
	}
	if record.IssueDate == nil || *record.IssueDate != "2025-11-10" {
		t.Errorf("issue date = %v, want 2025-11-10", record.IssueDate)
	}
	if record.TotalAmount == nil || record.TotalAmount.String() != "3038.08" {
		t.Errorf("total = %v, want 3038.08", record.TotalAmount)
	}
	if record.DocumentNumber == nil || *record.DocumentNumber != "Fatura João Da Silva" {
		t.Errorf("document number = %v, want Fatura João Da Silva", record.DocumentNumber)
	}
	if record.CurrencyCode != "BRL" {
		t.Errorf("currency = %s, want BRL", record.CurrencyCode)
	}

	// the payment line must be excluded
	if len(record.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(record.Items))
	}
	first := record.Items[0]
	if first.Date == nil || *first.Date != "2025-10-17" {
		t.Errorf("first item date = %v, want 2025-10-17", first.Date)
	}
	if first.Amount == nil || first.Amount.String() != "250" {
		t.Errorf("first item amount = %v, want 250", first.Amount)
	}
	if first.Description != "Supermercado Pão de Açúcar" {
		t.Errorf("first item description = %q", first.Description)
	}
}

func TestNubankTwoLineLayout(t *testing.T) {
	e := NewNubankExtractor(dates.NewNormalizer(2025))

	text := `Nubank
Olá, esta é a sua fatura
Total a pagar R$ 100,00
17 OUT
 •••• 2300 Loja do Zé R$ 100,00
`
	record, err := e.Extract(text)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(record.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(record.Items))
	}
	if record.Items[0].Date == nil || *record.Items[0].Date != "2025-10-17" {
		t.Errorf("item date = %v, want 2025-10-17", record.Items[0].Date)
	}
}

func TestNubankExtractFailsOnEmptyStructure(t *testing.T) {
	e := NewNubankExtractor(dates.NewNormalizer(2025))
	if _, err := e.Extract("nubank nubank mas sem estrutura de fatura"); err == nil {
		t.Error("Extract should fail when no invoice structure is present")
	}
}
