package entity

import (
	"github.com/shopspring/decimal"

	"github.com/finparse/financial-parser/constants"
)

// LineItem is a single transaction or product line extracted from a document.
type LineItem struct {
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Quantity    *float64         `json:"quantity,omitempty"`
	Date        *string          `json:"date,omitempty"` // normalized YYYY-MM-DD
}

// FinancialRecord is the extraction result for data transfer between layers.
// Every field except CurrencyCode is optional; absence means "not found".
type FinancialRecord struct {
	IssuerName     *string          `json:"issuer_name,omitempty"`
	IssuerTaxID    *string          `json:"tax_id,omitempty"`
	PayerTaxID     *string          `json:"payer_tax_id,omitempty"`
	IssueDate      *string          `json:"issue_date,omitempty"` // YYYY-MM-DD
	DueDate        *string          `json:"due_date,omitempty"`   // YYYY-MM-DD
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	CurrencyCode   string           `json:"currency_code"`
	DocumentNumber *string          `json:"document_number,omitempty"`
	Barcode        *string          `json:"barcode,omitempty"`
	PaymentLine    *string          `json:"payment_line,omitempty"`
	Items          []LineItem       `json:"items,omitempty"`
}

// NewFinancialRecord returns an empty record with the default currency set.
func NewFinancialRecord() *FinancialRecord {
	return &FinancialRecord{CurrencyCode: constants.DefaultCurrency}
}
