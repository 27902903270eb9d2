package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/entity"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return &d
}

// Filling in another field must never lower the score.
func TestFieldConfidenceMonotonic(t *testing.T) {
	record := entity.NewFinancialRecord()
	previous := FieldConfidence(record, constants.DocCardInvoice)
	assert.Equal(t, 0.0, previous)

	steps := []func(){
		func() { record.TotalAmount = decPtr("100.00") },
		func() { record.IssuerName = strPtr("Banco X") },
		func() { record.IssuerTaxID = strPtr("11.222.333/0001-44") },
		func() { record.DueDate = strPtr("2025-12-01") },
		func() { record.IssueDate = strPtr("2025-11-01") },
		func() { record.DocumentNumber = strPtr("123") },
		func() { record.PayerTaxID = strPtr("111.222.333-44") },
		func() { record.Items = []entity.LineItem{{Description: "item"}} },
	}
	for i, step := range steps {
		step()
		current := FieldConfidence(record, constants.DocCardInvoice)
		assert.Greater(t, current, previous, "step %d", i)
		previous = current
	}
	assert.InDelta(t, 1.0, previous, 1e-9, "all fields present should score 1")
}

// On boletos the barcode and payment line join the denominator, so the same
// fields score lower until they are present.
func TestFieldConfidenceBoleto(t *testing.T) {
	record := entity.NewFinancialRecord()
	record.TotalAmount = decPtr("100.00")
	record.DueDate = strPtr("2025-12-01")

	asInvoice := FieldConfidence(record, constants.DocCardInvoice)
	asBoleto := FieldConfidence(record, constants.DocBoleto)
	assert.Less(t, asBoleto, asInvoice)

	record.Barcode = strPtr("12345678901234567890123456789012345678901234567")
	record.PaymentLine = strPtr("12345.67890 12345.678901 12345.678901 1 12345678901234")
	withBoletoFields := FieldConfidence(record, constants.DocBoleto)
	assert.Greater(t, withBoletoFields, asBoleto)
}

func TestBlendConfidence(t *testing.T) {
	assert.Equal(t, 0.0, BlendConfidence(0, 0, 0))
	assert.InDelta(t, 1.0, BlendConfidence(1, 1, 1), 1e-9)

	// fields carry half the weight
	assert.InDelta(t, 0.5, BlendConfidence(0, 0, 1), 1e-9)
	assert.InDelta(t, 0.3, BlendConfidence(1, 0, 0), 1e-9)
	assert.InDelta(t, 0.2, BlendConfidence(0, 1, 0), 1e-9)
}

func TestCountFields(t *testing.T) {
	record := entity.NewFinancialRecord()
	assert.Equal(t, 0, countFields(record))

	record.TotalAmount = decPtr("10.00")
	record.IssuerName = strPtr("Banco X")
	assert.Equal(t, 2, countFields(record))
}
