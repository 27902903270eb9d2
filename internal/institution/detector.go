package institution

import (
	"regexp"
	"strings"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/entity"
)

// signature holds one institution's detection patterns. The slice below is
// declaration-ordered: ties go to the first institution declared, which
// downstream consumers depend on.
type signature struct {
	key      constants.Institution
	patterns []*regexp.Regexp
}

var signatures = []signature{
	{constants.Nubank, compileAll(
		`nubank`,
		`nu pagamentos`,
		`roxinho`,
		`olá.*esta é a sua fatura`,
	)},
	{constants.Inter, compileAll(
		`banco inter`,
		`\binter\b`,
		`banco inter s\.?a\.?`,
	)},
	{constants.C6, compileAll(
		`c6 bank`,
		`c6bank`,
		`banco c6`,
	)},
	{constants.PicPay, compileAll(
		`picpay`,
		`pic pay`,
	)},
	{constants.Itau, compileAll(
		`ita[uú]\b`,
		`ita[uú] unibanco`,
	)},
	{constants.Bradesco, compileAll(
		`bradesco`,
	)},
	{constants.Santander, compileAll(
		`santander`,
	)},
	{constants.BB, compileAll(
		`banco do brasil`,
		`\bbb\b`,
	)},
	{constants.Caixa, compileAll(
		`caixa econ[oô]mica`,
		`\bcaixa\b`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Detector scores raw text against known institution signatures. It is a
// pure function over the static signature tables plus the registry.
type Detector struct {
	registry *Registry
}

// NewDetector creates a detector backed by the given registry.
func NewDetector(registry *Registry) *Detector {
	return &Detector{registry: registry}
}

// Detect returns the institution whose signature patterns match the text
// most often, or false when nothing matches. Confidence saturates at three
// signature hits: min(1, score/3).
func (d *Detector) Detect(text string) (entity.InstitutionDetection, bool) {
	textLower := strings.ToLower(text)

	bestScore := 0
	var bestKey constants.Institution
	for _, sig := range signatures {
		score := 0
		for _, re := range sig.patterns {
			score += len(re.FindAllString(textLower, -1))
		}
		// strict > keeps the first-declared institution on ties
		if score > bestScore {
			bestScore = score
			bestKey = sig.key
		}
	}

	if bestScore == 0 {
		return entity.InstitutionDetection{}, false
	}

	confidence := float64(bestScore) / 3.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	name, _, ok := d.registry.Identify(text)
	if !ok {
		name = FriendlyName(string(bestKey))
	}

	return entity.InstitutionDetection{
		Key:         string(bestKey),
		DisplayName: name,
		Confidence:  confidence,
	}, true
}

// TaxID returns the registered CNPJ for an institution key.
func (d *Detector) TaxID(key string) (string, bool) {
	return d.registry.TaxIDFor(key)
}
