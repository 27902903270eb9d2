package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/dates"
	"github.com/finparse/financial-parser/internal/entity"
	"github.com/finparse/financial-parser/internal/money"
)

const (
	interName  = "Banco Inter S.A."
	interTaxID = "00.416.968/0001-01"
)

var interIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)banco inter`),
	regexp.MustCompile(`(?i)\binter\b`),
	regexp.MustCompile(`(?i)inter s\.?a\.?`),
	regexp.MustCompile(`(?i)fatura.*cart[aã]o.*cr[eé]dito`),
	regexp.MustCompile(`00\.416\.968/0001-01`),
}

var (
	interIssuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:data de )?emiss[aã]o[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
		regexp.MustCompile(`(?i)(?:data de )?emiss[aã]o[:\s]*(\d{1,2}\s+(?:` + dates.AbbrAlternation + `))`),
		regexp.MustCompile(`(?i)emitid[ao] em[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	}
	interDuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:data de )?vencimento[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
		regexp.MustCompile(`(?i)(?:data de )?vencimento[:\s]*(\d{1,2}\s+(?:` + dates.AbbrAlternation + `))`),
		regexp.MustCompile(`(?i)vence em[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
		regexp.MustCompile(`(?i)pagar at[eé][:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	}
	interTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:valor )?total[:\s]*r?\$?\s*([\d.,]+)`),
		regexp.MustCompile(`(?i)total a pagar[:\s]*r?\$?\s*([\d.,]+)`),
		regexp.MustCompile(`(?i)total da fatura[:\s]*r?\$?\s*([\d.,]+)`),
	}
	interDocPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)fatura[:\s]*n[°º]?\s*(\d+)`),
		regexp.MustCompile(`(?i)n[úu]mero[:\s]*(\d+)`),
		regexp.MustCompile(`(?i)documento[:\s]*n[°º]?\s*(\d+)`),
	}
	interHolderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`([A-ZÀÂÉÊÍÓÔÕÚ][A-Za-zÀ-ÿ\s]{2,50})\s*(?:FATURA|CPF)`),
		regexp.MustCompile(`(?i)titular[:\s]*([A-ZÀÂÉÊÍÓÔÕÚ][A-Za-zÀ-ÿ\s]{2,50})`),
	}

	// leading abbreviated date: "17 OUT Restaurante ... R$ 89,90"
	interTxnDate = regexp.MustCompile(`(?i)^(\d{1,2})\s+(` + dates.AbbrAlternation + `)`)
	// summary lines carry amounts but are not purchases
	interSkipKeywords = []string{
		"total", "vencimento", "emissão", "fatura", "limite",
		"pagamento mínimo", "cnpj", "cpf", "saldo",
	}
	// trailing amount: description then "R$ 1.234,56" at end of line
	interTxnAmount = regexp.MustCompile(`(?i)r?\$?\s*([\d.]+,\d{2})\s*$`)
)

// InterExtractor handles Banco Inter credit card invoices, including
// installment lines.
type InterExtractor struct {
	dates *dates.Normalizer
}

func NewInterExtractor(normalizer *dates.Normalizer) *InterExtractor {
	return &InterExtractor{dates: normalizer}
}

func (e *InterExtractor) Institution() string { return string(constants.Inter) }

func (e *InterExtractor) CanHandle(text string) bool {
	matches := 0
	for _, re := range interIndicators {
		if re.MatchString(text) {
			matches++
		}
	}
	return matches >= 2
}

func (e *InterExtractor) Extract(text string) (*entity.FinancialRecord, error) {
	record := entity.NewFinancialRecord()
	record.IssuerName = strPtr(interName)
	record.IssuerTaxID = strPtr(interTaxID)

	year, _ := e.dates.InferYear(text)

	record.IssueDate = e.firstDateMatch(text, interIssuePatterns, year, e.dates.ExtractIssueDate)
	record.DueDate = e.firstDateMatch(text, interDuePatterns, year, e.dates.ExtractDueDate)
	record.TotalAmount = firstAmountMatch(text, interTotalPatterns)
	record.DocumentNumber = firstStringMatch(text, interDocPatterns)

	if holder := e.extractHolderName(text); holder != "" {
		record.DocumentNumber = strPtr("Fatura " + holder)
	}

	record.Items = e.extractTransactions(text, year)

	if record.TotalAmount == nil && record.DueDate == nil && len(record.Items) == 0 {
		return nil, common.NewAppError("EXTRACT_FAILED", "no inter invoice structure found", common.ErrInvalidInput)
	}
	return record, nil
}

// firstDateMatch applies label patterns in order, then the generic fallback.
func (e *InterExtractor) firstDateMatch(text string, patterns []*regexp.Regexp, year int, fallback func(string) (string, bool)) *string {
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

func (e *InterExtractor) extractHolderName(text string) string {
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

func (e *InterExtractor) extractTransactions(text string, year int) []entity.LineItem {
	var items []entity.LineItem
	var currentDate *string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		skip := false
		for _, kw := range interSkipKeywords {
			if strings.Contains(lower, kw) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		if m := interTxnDate.FindStringSubmatch(line); m != nil {
			if parsed, ok := e.dates.Parse(m[1]+" "+m[2], year); ok {
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
		description = strings.TrimSpace(strings.ReplaceAll(description, "•", ""))
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

// firstAmountMatch returns the first label pattern whose captured amount
// parses cleanly.
func firstAmountMatch(text string, patterns []*regexp.Regexp) *decimal.Decimal {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := money.Parse(m[1]); err == nil {
				return decPtr(v)
			}
		}
	}
	return nil
}

func firstStringMatch(text string, patterns []*regexp.Regexp) *string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strPtr(m[1])
		}
	}
	return nil
}
