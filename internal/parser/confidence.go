package parser

import (
	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/entity"
)

// fieldWeight scores one extracted field. Amounts and identity fields carry
// the most weight; line items the least, since the generic item scan is
// noisy.
type fieldWeight struct {
	weight  float64
	present func(*entity.FinancialRecord) bool
}

var fieldWeights = []fieldWeight{
	{0.15, func(r *entity.FinancialRecord) bool { return r.IssuerName != nil }},
	{0.15, func(r *entity.FinancialRecord) bool { return r.IssuerTaxID != nil }},
	{0.10, func(r *entity.FinancialRecord) bool { return r.PayerTaxID != nil }},
	{0.10, func(r *entity.FinancialRecord) bool { return r.IssueDate != nil }},
	{0.15, func(r *entity.FinancialRecord) bool { return r.DueDate != nil }},
	{0.20, func(r *entity.FinancialRecord) bool { return r.TotalAmount != nil }},
	{0.10, func(r *entity.FinancialRecord) bool { return r.DocumentNumber != nil }},
	{0.05, func(r *entity.FinancialRecord) bool { return len(r.Items) > 0 }},
}

// boletoWeights extend the table for boletos, which should carry a barcode
// and payment line. Both sides of the ratio grow, so a boleto without them
// scores lower than the same fields on an invoice.
var boletoWeights = []fieldWeight{
	{0.15, func(r *entity.FinancialRecord) bool { return r.Barcode != nil }},
	{0.15, func(r *entity.FinancialRecord) bool { return r.PaymentLine != nil }},
}

// FieldConfidence scores how much of the record was filled, weighted by
// field importance, normalized to [0, 1].
func FieldConfidence(record *entity.FinancialRecord, docType constants.DocumentType) float64 {
	weights := fieldWeights
	if docType == constants.DocBoleto {
		weights = append(append([]fieldWeight{}, fieldWeights...), boletoWeights...)
	}

	score, maxScore := 0.0, 0.0
	for _, fw := range weights {
		maxScore += fw.weight
		if fw.present(record) {
			score += fw.weight
		}
	}
	if maxScore == 0 {
		return 0
	}
	return score / maxScore
}

// BlendConfidence combines the three pipeline signals into the overall
// score: half from the extracted fields, the rest split between document
// type and institution detection.
func BlendConfidence(docTypeConf, detectionConf, fieldConf float64) float64 {
	return docTypeConf*0.3 + detectionConf*0.2 + fieldConf*0.5
}

// countFields reports how many of the weighted fields are present, for
// metrics.
func countFields(record *entity.FinancialRecord) int {
	n := 0
	for _, fw := range fieldWeights {
		if fw.present(record) {
			n++
		}
	}
	for _, fw := range boletoWeights {
		if fw.present(record) {
			n++
		}
	}
	return n
}
