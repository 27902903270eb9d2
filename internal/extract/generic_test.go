package extract

import (
	"strings"
	"testing"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/dates"
)

func TestGenericExtract(t *testing.T) {
	e := NewGenericExtractor(dates.NewNormalizer(2025))

	text := `Provedora de Internet Ltda
CNPJ: 12.345.678/0001-95
Nota: nº 4521
Emissão: 01/10/2025
Vencimento: 15/10/2025
Serviço de internet R$ 100,00
Taxa de instalação R$ 50,00
Total: R$ 150,00
`
	record := e.Extract(text, constants.DocNotaFiscal)

	if record.IssuerName == nil || *record.IssuerName != "Provedora de Internet Ltda" {
		t.Errorf("issuer name = %v", record.IssuerName)
	}
	if record.IssuerTaxID == nil || *record.IssuerTaxID != "12.345.678/0001-95" {
		t.Errorf("tax id = %v", record.IssuerTaxID)
	}
	if record.IssueDate == nil || *record.IssueDate != "2025-10-01" {
		t.Errorf("issue date = %v", record.IssueDate)
	}
	if record.DueDate == nil || *record.DueDate != "2025-10-15" {
		t.Errorf("due date = %v", record.DueDate)
	}
	if record.TotalAmount == nil || record.TotalAmount.String() != "150" {
		t.Errorf("total = %v, want 150", record.TotalAmount)
	}
	if len(record.Items) == 0 {
		t.Error("expected line items")
	}
}

// A CNPJ written without punctuation is still found and reformatted.
func TestGenericNormalizesTaxID(t *testing.T) {
	e := NewGenericExtractor(dates.NewNormalizer(2025))
	record := e.Extract("Empresa X\nCNPJ 12345678000195\n", constants.DocUnknown)
	if record.IssuerTaxID == nil || *record.IssuerTaxID != "12.345.678/0001-95" {
		t.Errorf("tax id = %v, want 12.345.678/0001-95", record.IssuerTaxID)
	}
}

func TestGenericUnlabeledTotalTakesMax(t *testing.T) {
	e := NewGenericExtractor(dates.NewNormalizer(2025))
	record := e.Extract("Pago R$ 50,00 e depois R$ 3.038,08 e R$ 10,00", constants.DocUnknown)
	if record.TotalAmount == nil || record.TotalAmount.String() != "3038.08" {
		t.Errorf("total = %v, want 3038.08", record.TotalAmount)
	}
}

func TestGenericBoletoFields(t *testing.T) {
	e := NewGenericExtractor(dates.NewNormalizer(2025))

	barcode := strings.Repeat("1", 47)
	text := "Boleto\n" + barcode + "\n12345.67890 12345.678901 12345.678901 1 12345678901234\n"

	record := e.Extract(text, constants.DocBoleto)
	if record.Barcode == nil || *record.Barcode != barcode {
		t.Error("barcode should be extracted on boletos")
	}
	if record.PaymentLine == nil {
		t.Error("payment line should be extracted on boletos")
	}

	// same text classified as something else skips the boleto fields
	record = e.Extract(text, constants.DocStatement)
	if record.Barcode != nil || record.PaymentLine != nil {
		t.Error("boleto fields should only apply to boletos")
	}
}

func TestGenericNeverFails(t *testing.T) {
	e := NewGenericExtractor(dates.NewNormalizer(2025))
	record := e.Extract("", constants.DocUnknown)
	if record == nil {
		t.Fatal("generic extraction must always return a record")
	}
	if record.CurrencyCode != "BRL" {
		t.Errorf("currency = %s, want BRL", record.CurrencyCode)
	}
}
