// Package doctype classifies the overall document kind by keyword scoring.
// It is intentionally thin: its output only feeds the confidence blend.
package doctype

import (
	"strings"

	"github.com/finparse/financial-parser/constants"
)

type keywordSet struct {
	docType  constants.DocumentType
	keywords []string
}

var keywordSets = []keywordSet{
	{constants.DocBoleto, []string{
		"boleto", "código de barras", "linha digitável",
		"banco do brasil", "caixa econômica", "bradesco", "itaú", "santander",
	}},
	{constants.DocCardInvoice, []string{
		"fatura", "cartão de crédito", "limite disponível",
		"pagamento mínimo", "vencimento da fatura",
	}},
	{constants.DocNotaFiscal, []string{
		"nota fiscal", "nf-e", "danfe", "destinatário", "natureza da operação",
	}},
	{constants.DocStatement, []string{
		"extrato", "saldo anterior", "saldo atual", "lançamentos",
	}},
}

// Classify scores the text against each document type's keyword set and
// returns the winner with confidence min(1, hits/3).
func Classify(text string) (constants.DocumentType, float64) {
	textLower := strings.ToLower(text)

	bestScore := 0
	best := constants.DocUnknown
	for _, set := range keywordSets {
		score := 0
		for _, kw := range set.keywords {
			if strings.Contains(textLower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = set.docType
		}
	}

	if bestScore == 0 {
		return constants.DocUnknown, 0.0
	}

	confidence := float64(bestScore) / 3.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return best, confidence
}
