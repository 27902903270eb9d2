package extract

import (
	"testing"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/dates"
)

const interInvoice = `Banco Inter S.A.
CNPJ 00.416.968/0001-01
Fatura do cartão de crédito
Data de vencimento: 15/12/2025
Total a pagar: R$ 1.500,00
05 DEZ Restaurante Mineiro R$ 89,90
06 DEZ Farmácia Popular R$ 45,10
`

const c6Invoice = `C6 Bank
Banco C6 S.A.
Fatura
Vencimento: 20/12/2025
Total: R$ 820,00
10/12 Livraria Cultura R$ 120,00
`

const picpayInvoice = `PicPay
Fatura do cartão
CNPJ: 14.176.050/0001-70
Data de Fechamento: 25/11/2025
Data de Vencimento: 05/12/2025
Referência: 998877
02/11 AMAZON R$ 250,00
`

// Each specialized extractor must claim only its own institution's
// documents.
func TestCanHandleMutualExclusion(t *testing.T) {
	n := dates.NewNormalizer(2025)
	extractors := []Extractor{
		NewNubankExtractor(n),
		NewInterExtractor(n),
		NewC6Extractor(n),
		NewPicPayExtractor(n),
	}
	docs := map[string]string{
		string(constants.Nubank): nubankInvoice,
		string(constants.Inter):  interInvoice,
		string(constants.C6):     c6Invoice,
		string(constants.PicPay): picpayInvoice,
	}

	for institution, doc := range docs {
		for _, e := range extractors {
			got := e.CanHandle(doc)
			want := e.Institution() == institution
			if got != want {
				t.Errorf("%s extractor CanHandle(%s doc) = %v, want %v",
					e.Institution(), institution, got, want)
			}
		}
	}
}

func TestInterExtract(t *testing.T) {
	e := NewInterExtractor(dates.NewNormalizer(2025))
	record, err := e.Extract(interInvoice)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.DueDate == nil || *record.DueDate != "2025-12-15" {
		t.Errorf("due date = %v, want 2025-12-15", record.DueDate)
	}
	if record.TotalAmount == nil || record.TotalAmount.String() != "1500" {
		t.Errorf("total = %v, want 1500", record.TotalAmount)
	}
	if len(record.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(record.Items))
	}
	if record.Items[0].Date == nil || *record.Items[0].Date != "2025-12-05" {
		t.Errorf("first item date = %v, want 2025-12-05", record.Items[0].Date)
	}
}

func TestC6Extract(t *testing.T) {
	e := NewC6Extractor(dates.NewNormalizer(2025))
	record, err := e.Extract(c6Invoice)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.DueDate == nil || *record.DueDate != "2025-12-20" {
		t.Errorf("due date = %v, want 2025-12-20", record.DueDate)
	}
	if record.TotalAmount == nil || record.TotalAmount.String() != "820" {
		t.Errorf("total = %v, want 820", record.TotalAmount)
	}
	if len(record.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(record.Items))
	}
	if record.Items[0].Description != "Livraria Cultura" {
		t.Errorf("item description = %q", record.Items[0].Description)
	}
}

func TestPicPayExtract(t *testing.T) {
	e := NewPicPayExtractor(dates.NewNormalizer(2025))
	record, err := e.Extract(picpayInvoice)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if record.IssueDate == nil || *record.IssueDate != "2025-11-25" {
		t.Errorf("issue date = %v, want 2025-11-25", record.IssueDate)
	}
	if record.DueDate == nil || *record.DueDate != "2025-12-05" {
		t.Errorf("due date = %v, want 2025-12-05", record.DueDate)
	}
	if record.DocumentNumber == nil || *record.DocumentNumber != "998877" {
		t.Errorf("document number = %v, want 998877", record.DocumentNumber)
	}
	if len(record.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(record.Items))
	}
	if record.Items[0].Date == nil || *record.Items[0].Date != "2025-11-02" {
		t.Errorf("item date = %v, want 2025-11-02", record.Items[0].Date)
	}
}

func TestDedupeItems(t *testing.T) {
	n := dates.NewNormalizer(2025)
	e := NewInterExtractor(n)

	text := `Banco Inter
Total: R$ 100,00
05 DEZ Loja Repetida R$ 50,00
05 DEZ Loja Repetida R$ 50,00
`
	record, err := e.Extract(text)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(record.Items) != 1 {
		t.Errorf("duplicate lines should collapse, got %d items", len(record.Items))
	}
}
