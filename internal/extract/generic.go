package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/dates"
	"github.com/finparse/financial-parser/internal/entity"
	"github.com/finparse/financial-parser/internal/money"
)

var (
	cnpjPattern        = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`)
	cpfPattern         = regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)
	barcodePattern     = regexp.MustCompile(`\b\d{47,48}\b`)
	paymentLinePattern = regexp.MustCompile(`\b\d{5}\.\d{5}\s+\d{5}\.\d{6}\s+\d{5}\.\d{6}\s+\d\s+\d{14}\b`)
	nonDigit           = regexp.MustCompile(`\D`)

	genericTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:valor )?total[:\s]*r?\$?\s*(\d{1,3}(?:\.\d{3})*,\d{2})`),
		regexp.MustCompile(`(?i)(?:valor )?a pagar[:\s]*r?\$?\s*(\d{1,3}(?:\.\d{3})*,\d{2})`),
		regexp.MustCompile(`(?i)total geral[:\s]*r?\$?\s*(\d{1,3}(?:\.\d{3})*,\d{2})`),
	}
	genericDocPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:n[úu]mero|n[ºo]|numero)[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)(?:fatura|documento|nota)[:\s]*n[ºo]?\s*(\d+)`),
		regexp.MustCompile(`(?i)(?:nf-e|nfe)[:\s]*(\d+)`),
	}

	// "Serviço de internet R$ 100,00"
	genericItemPattern = regexp.MustCompile(`(.+?)\s+R?\$?\s*(\d{1,3}(?:\.\d{3})*,\d{2})`)

	companySuffixes = []string{"ltda", "s.a.", "s/a", "eireli", " me", " epp"}
)

// maxGenericItems caps the generic item scan, which is looser than the
// specialized grammars.
const maxGenericItems = 20

// GenericExtractor is the institution-agnostic terminal fallback. It always
// returns a record; fields it cannot find stay absent.
type GenericExtractor struct {
	dates *dates.Normalizer
}

func NewGenericExtractor(normalizer *dates.Normalizer) *GenericExtractor {
	return &GenericExtractor{dates: normalizer}
}

// Extract scans the text for tax-id-shaped, date-shaped and amount-shaped
// tokens plus label-prefixed fields. It never fails.
func (e *GenericExtractor) Extract(text string, docType constants.DocumentType) *entity.FinancialRecord {
	record := entity.NewFinancialRecord()

	if name := e.extractCompanyName(text); name != "" {
		record.IssuerName = strPtr(name)
	}
	if cnpj := e.extractCNPJ(text); cnpj != "" {
		record.IssuerTaxID = strPtr(cnpj)
	}
	if cpf := e.extractCPF(text); cpf != "" {
		record.PayerTaxID = strPtr(cpf)
	}

	if issue, ok := e.dates.ExtractIssueDate(text); ok {
		record.IssueDate = strPtr(issue)
	}
	if due, ok := e.dates.ExtractDueDate(text); ok {
		record.DueDate = strPtr(due)
	}

	record.TotalAmount = e.extractTotal(text)
	record.DocumentNumber = firstStringMatch(text, genericDocPatterns)

	if docType == constants.DocBoleto {
		if m := barcodePattern.FindString(text); m != "" {
			record.Barcode = strPtr(m)
		}
		if m := paymentLinePattern.FindString(text); m != "" {
			record.PaymentLine = strPtr(m)
		}
	}

	record.Items = e.extractItems(text)
	return record
}

// extractCNPJ returns the first CNPJ-shaped token, normalized to the
// canonical XX.XXX.XXX/XXXX-XX form.
func (e *GenericExtractor) extractCNPJ(text string) string {
	m := cnpjPattern.FindString(text)
	if m == "" {
		return ""
	}
	digits := nonDigit.ReplaceAllString(m, "")
	if len(digits) != 14 {
		return ""
	}
	return digits[:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:]
}

func (e *GenericExtractor) extractCPF(text string) string {
	for _, m := range cpfPattern.FindAllString(text, -1) {
		digits := nonDigit.ReplaceAllString(m, "")
		if len(digits) != 11 {
			continue
		}
		return digits[:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:]
	}
	return ""
}

// extractTotal prefers labeled totals and falls back to the largest
// amount-shaped token in the document.
func (e *GenericExtractor) extractTotal(text string) *decimal.Decimal {
	for _, re := range genericTotalPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := money.Parse(m[1]); err == nil {
				return decPtr(v)
			}
		}
	}
	if v, ok := money.Max(text); ok {
		return decPtr(v)
	}
	return nil
}

// extractCompanyName looks at the document head for a line near a CNPJ or
// carrying a company-suffix keyword, then falls back to the first line of
// reasonable length.
func (e *GenericExtractor) extractCompanyName(text string) string {
	lines := strings.Split(text, "\n")

	head := lines
	if len(head) > 10 {
		head = head[:10]
	}
	for i, line := range head {
		line = strings.TrimSpace(line)

		nextHasCNPJ := i+1 < len(lines) && cnpjPattern.MatchString(lines[i+1])
		if cnpjPattern.MatchString(line) || nextHasCNPJ {
			if i > 0 && len(strings.TrimSpace(lines[i-1])) > 3 {
				return strings.TrimSpace(lines[i-1])
			}
			if len(line) > 3 {
				return line
			}
		}

		lower := strings.ToLower(line)
		for _, suffix := range companySuffixes {
			if strings.Contains(lower, suffix) {
				return line
			}
		}
	}

	limit := len(lines)
	if limit > 5 {
		limit = 5
	}
	for _, line := range lines[:limit] {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 5 && len(trimmed) < 100 {
			return trimmed
		}
	}
	return ""
}

func (e *GenericExtractor) extractItems(text string) []entity.LineItem {
	var items []entity.LineItem
	for _, line := range strings.Split(text, "\n") {
		m := genericItemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := money.Parse(m[2])
		if err != nil {
			continue
		}
		description := strings.TrimSpace(m[1])
		if !validDescription(description, 5, 100) {
			continue
		}
		items = append(items, entity.LineItem{Description: description, Amount: decPtr(value)})
	}
	return dedupeItems(items, maxGenericItems)
}
