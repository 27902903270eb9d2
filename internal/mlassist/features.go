// Package mlassist provides a lightweight second-opinion classifier for
// institution detection. It scores hand-built text features against trained
// per-institution weight vectors; it never replaces the rule-based detector,
// it only overrides low-confidence detections.
package mlassist

import (
	"regexp"
	"strings"

	"github.com/finparse/financial-parser/internal/money"
)

var (
	cnpjShape      = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	datedLineShape = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{4}\b`)
	interLineShape = regexp.MustCompile(`(?i)^\s*\d{1,2}\s+(?:JAN|FEV|MAR|ABR|MAI|JUN|JUL|AGO|SET|OUT|NOV|DEZ)\b`)
)

// institutionKeywords are the per-institution flag features, in a fixed order
// shared by training and prediction.
var institutionKeywords = []struct {
	name    string
	keyword string
}{
	{"kw_nubank", "nubank"},
	{"kw_inter", "banco inter"},
	{"kw_c6", "c6 bank"},
	{"kw_picpay", "picpay"},
	{"kw_itau", "itaú"},
	{"kw_bradesco", "bradesco"},
	{"kw_santander", "santander"},
	{"kw_bb", "banco do brasil"},
	{"kw_caixa", "caixa econômica"},
}

// FeatureCount is the length of every feature vector. Stored weight vectors
// of any other length are rejected at load time.
const FeatureCount = 20

// Features converts document text into the fixed-length vector the weight
// vectors were trained against. Counts are squashed so no single feature
// dominates the dot product.
func Features(text string) []float64 {
	lower := strings.ToLower(text)
	lines := strings.Split(text, "\n")

	features := make([]float64, 0, FeatureCount)
	features = append(features, squash(float64(len(text)), 5000))
	features = append(features, squash(float64(len(lines)), 100))

	for _, kw := range institutionKeywords {
		features = append(features, flag(strings.Contains(lower, kw.keyword)))
	}

	features = append(features, flag(strings.Contains(lower, "fatura")))
	features = append(features, flag(strings.Contains(lower, "cartão")))
	features = append(features, flag(strings.Contains(lower, "total a pagar")))
	features = append(features, squash(float64(money.CountCurrencyTokens(text)), 20))
	features = append(features, squash(float64(money.CountValueTokens(text)), 30))
	features = append(features, squash(float64(countMatchingLines(lines, datedLineShape)), 30))
	features = append(features, flag(cnpjShape.MatchString(text)))
	// the Nubank greeting and the Inter date-first transaction layout are
	// strong signals the keyword flags miss on noisy scans
	features = append(features, flag(strings.Contains(lower, "esta é a sua fatura")))
	features = append(features, flag(countMatchingLines(lines, interLineShape) >= 2))

	return features
}

func flag(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// squash maps a count into [0, 1] with saturation at the ceiling.
func squash(v, ceiling float64) float64 {
	if v >= ceiling {
		return 1.0
	}
	return v / ceiling
}

func countMatchingLines(lines []string, re *regexp.Regexp) int {
	n := 0
	for _, line := range lines {
		if re.MatchString(line) {
			n++
		}
	}
	return n
}
