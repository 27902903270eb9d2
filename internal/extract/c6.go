package extract

import (
	"regexp"
	"strings"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/dates"
	"github.com/finparse/financial-parser/internal/entity"
	"github.com/finparse/financial-parser/internal/money"
)

const (
	c6Name  = "C6 Bank"
	c6TaxID = "31.872.495/0001-72"
)

var c6Indicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)c6\s*bank`),
	regexp.MustCompile(`(?i)c6bank`),
	regexp.MustCompile(`(?i)banco c6`),
	regexp.MustCompile(`31\.872\.495/0001-72`),
	regexp.MustCompile(`(?i)fatura.*c6`),
}

var (
	c6IssuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:data de )?emiss[aã]o[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
		regexp.MustCompile(`(?i)emitid[ao] em[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	}
	c6DuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:data de )?vencimento[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
		regexp.MustCompile(`(?i)vence em[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
		regexp.MustCompile(`(?i)pagar at[eé][:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	}

	// leading numeric date without year: "12/10 PADARIA ... R$ 35,00"
	c6TxnDate = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})\b`)
)

// c6SkipKeywords rules out summary lines that carry amounts but are not
// purchases.
var c6SkipKeywords = []string{
	"total", "resumo", "fatura", "vencimento", "emissão", "titular",
	"cnpj", "cpf", "cartão", "limite", "pagamento",
}

// C6Extractor handles C6 Bank credit card invoices.
type C6Extractor struct {
	dates *dates.Normalizer
}

func NewC6Extractor(normalizer *dates.Normalizer) *C6Extractor {
	return &C6Extractor{dates: normalizer}
}

func (e *C6Extractor) Institution() string { return string(constants.C6) }

func (e *C6Extractor) CanHandle(text string) bool {
	matches := 0
	for _, re := range c6Indicators {
		if re.MatchString(text) {
			matches++
		}
	}
	return matches >= 2
}

func (e *C6Extractor) Extract(text string) (*entity.FinancialRecord, error) {
	record := entity.NewFinancialRecord()
	record.IssuerName = strPtr(c6Name)
	record.IssuerTaxID = strPtr(c6TaxID)

	year, _ := e.dates.InferYear(text)

	record.IssueDate = e.labeledDate(text, c6IssuePatterns, year, e.dates.ExtractIssueDate)
	record.DueDate = e.labeledDate(text, c6DuePatterns, year, e.dates.ExtractDueDate)
	record.TotalAmount = firstAmountMatch(text, interTotalPatterns)
	record.DocumentNumber = firstStringMatch(text, interDocPatterns)

	if holder := e.extractHolderName(text); holder != "" {
		record.DocumentNumber = strPtr("Fatura " + holder)
	}

	record.Items = e.extractTransactions(text, year)

	if record.TotalAmount == nil && record.DueDate == nil && len(record.Items) == 0 {
		return nil, common.NewAppError("EXTRACT_FAILED", "no c6 invoice structure found", common.ErrInvalidInput)
	}
	return record, nil
}

func (e *C6Extractor) labeledDate(text string, patterns []*regexp.Regexp, year int, fallback func(string) (string, bool)) *string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if parsed, ok := e.dates.Parse(m[1], year); ok {
				return strPtr(parsed)
			}
		}
	}
	if parsed, ok := fallback(text); ok {
		return strPtr(parsed)
	}
	return nil
}

func (e *C6Extractor) extractHolderName(text string) string {
	for _, re := range interHolderPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			lower := strings.ToLower(name)
			if len(name) > 5 && lower != "fatura" && lower != "extrato" && lower != "cartão" {
				return name
			}
		}
	}
	return ""
}

// extractTransactions scans "DD/MM description amount" lines, skipping
// summary lines by keyword.
func (e *C6Extractor) extractTransactions(text string, year int) []entity.LineItem {
	var items []entity.LineItem
	var currentDate *string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		skip := false
		for _, kw := range c6SkipKeywords {
			if strings.Contains(lower, kw) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		if m := c6TxnDate.FindStringSubmatch(line); m != nil && year != 0 {
			if parsed, ok := e.dates.Parse(m[1]+"/"+m[2]+"/"+itoa(year), 0); ok {
				currentDate = strPtr(parsed)
			}
			line = strings.TrimSpace(line[len(m[0]):])
		}

		m := interTxnAmount.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		value, err := money.Parse(line[m[2]:m[3]])
		if err != nil {
			continue
		}

		description := strings.TrimSpace(line[:m[0]])
		if !validDescription(description, 3, 200) {
			continue
		}

		items = append(items, entity.LineItem{
			Description: description,
			Amount:      decPtr(value),
			Date:        currentDate,
		})
	}

	return dedupeItems(items, maxLineItems)
}
