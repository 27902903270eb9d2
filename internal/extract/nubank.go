package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/dates"
	"github.com/finparse/financial-parser/internal/entity"
	"github.com/finparse/financial-parser/internal/money"
)

// Nubank invoice constants. The CNPJ never appears on the invoice itself.
const (
	nubankName  = "Nu Pagamentos S.A."
	nubankTaxID = "18.236.120/0001-58"
)

var nubankIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)nubank`),
	regexp.MustCompile(`(?i)nu pagamentos`),
	regexp.MustCompile(`(?i)olá.*esta é a sua fatura`),
	regexp.MustCompile(`(?i)total a pagar r\$`),
	regexp.MustCompile(`(?i)data de vencimento:.*(` + dates.AbbrAlternation + `)`),
}

var (
	nubankDueDate = regexp.MustCompile(`(?i)data de vencimento:\s*(\d{1,2})\s+(\p{L}+)\s+(\d{4})`)
	nubankDueAlt  = regexp.MustCompile(`(?i)vencimento:\s*(\d{1,2}\s+\p{L}+)`)
	nubankIssued  = regexp.MustCompile(`(?i)emiss[aã]o e envio\s+(\d{1,2})\s+(\p{L}+)\s+(\d{4})`)
	nubankTotal   = regexp.MustCompile(`(?i)total a pagar\s+r\$\s*([\d.,]+)`)
	nubankTotalAlt = regexp.MustCompile(`(?i)no valor de\s+r\$\s*([\d.,]+)`)
	nubankHolder  = regexp.MustCompile(`([A-ZÀÁÂÃÉÊÍÓÔÕÚÇ\s]{10,})\s+FATURA`)

	// "17 OUT •••• 2300 Loja A - Parcela 2/3 R$ 250,00"
	nubankTxnSingle = regexp.MustCompile(`(?i)^(\d{1,2})\s+(` + dates.AbbrAlternation + `)\s+[•●*]+\s+\d{4}\s+(.+?)\s+R\$\s*([\d.,]+)$`)
	// bare date line of the two-line layout: "17 OUT"
	nubankTxnDate = regexp.MustCompile(`(?i)^(\d{1,2})\s+(` + dates.AbbrAlternation + `)$`)
	// transaction line of the two-line layout: " •••• 2300 Loja A R$ 250,00"
	nubankTxnBody = regexp.MustCompile(`(?i)^\s*[•●*]+\s+\d{4}\s+(.+?)\s+R\$\s*([\d.,]+)$`)
)

// nubankExclusions mark lines that are not purchases: payments, credits,
// interest and tax lines must never be counted as transactions.
var nubankExclusions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)pagamento`),
	regexp.MustCompile(`(?i)crédito`),
	regexp.MustCompile(`(?i)juros`),
	regexp.MustCompile(`(?i)iof`),
	regexp.MustCompile(`(?i)saldo`),
	regexp.MustCompile(`^-`),
	regexp.MustCompile(`−`),
}

// NubankExtractor handles Nubank credit card invoices.
type NubankExtractor struct {
	dates *dates.Normalizer
}

func NewNubankExtractor(normalizer *dates.Normalizer) *NubankExtractor {
	return &NubankExtractor{dates: normalizer}
}

func (e *NubankExtractor) Institution() string { return string(constants.Nubank) }

func (e *NubankExtractor) CanHandle(text string) bool {
	matches := 0
	for _, re := range nubankIndicators {
		if re.MatchString(text) {
			matches++
		}
	}
	return matches >= 2
}

func (e *NubankExtractor) Extract(text string) (*entity.FinancialRecord, error) {
	record := entity.NewFinancialRecord()
	record.IssuerName = strPtr(nubankName)
	record.IssuerTaxID = strPtr(nubankTaxID)

	year, ok := e.dates.InferYear(text)
	if !ok {
		year = 2025
	}

	record.DueDate = e.extractDueDate(text, year)
	record.IssueDate = e.extractIssueDate(text)
	record.TotalAmount = e.extractTotal(text)

	if holder := e.extractHolderName(text); holder != "" {
		record.DocumentNumber = strPtr("Fatura " + holder)
	}

	record.Items = e.extractTransactions(text, year)

	if record.TotalAmount == nil && record.DueDate == nil && len(record.Items) == 0 {
		return nil, common.NewAppError("EXTRACT_FAILED", "no nubank invoice structure found", common.ErrInvalidInput)
	}
	return record, nil
}

func (e *NubankExtractor) extractDueDate(text string, year int) *string {
	if m := nubankDueDate.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[3]); err == nil {
			if parsed, ok := e.dates.Parse(m[1]+" "+m[2], y); ok {
				return strPtr(parsed)
			}
		}
	}
	if m := nubankDueAlt.FindStringSubmatch(text); m != nil {
		if parsed, ok := e.dates.Parse(m[1], year); ok {
			return strPtr(parsed)
		}
	}
	return nil
}

func (e *NubankExtractor) extractIssueDate(text string) *string {
	if m := nubankIssued.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[3]); err == nil {
			if parsed, ok := e.dates.Parse(m[1]+" "+m[2], y); ok {
				return strPtr(parsed)
			}
		}
	}
	return nil
}

func (e *NubankExtractor) extractTotal(text string) *decimal.Decimal {
	for _, re := range []*regexp.Regexp{nubankTotal, nubankTotalAlt} {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := money.Parse(m[1]); err == nil {
				return decPtr(v)
			}
		}
	}
	return nil
}

func (e *NubankExtractor) extractHolderName(text string) string {
	m := nubankHolder.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	for _, word := range []string{"RESUMO", "TRANSAÇÕES", "PRÓXIMAS", "LIMITES"} {
		if strings.Contains(name, word) {
			return ""
		}
	}
	return titleCase(name)
}

// extractTransactions scans for purchases in either the single-line layout
// ("17 OUT •••• 2300 Loja A R$ 250,00") or the older two-line layout where a
// bare date precedes its transaction lines.
func (e *NubankExtractor) extractTransactions(text string, year int) []entity.LineItem {
	var items []entity.LineItem
	var currentDate *string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if m := nubankTxnSingle.FindStringSubmatch(line); m != nil {
			if excluded(line, nubankExclusions) {
				continue
			}
			value, err := money.Parse(m[4])
			if err != nil || !value.IsPositive() || !validDescription(m[3], 2, 200) {
				continue
			}
			item := entity.LineItem{Description: strings.TrimSpace(m[3]), Amount: decPtr(value)}
			if parsed, ok := e.dates.Parse(m[1]+" "+m[2], year); ok {
				item.Date = strPtr(parsed)
			}
			items = append(items, item)
			continue
		}

		if m := nubankTxnDate.FindStringSubmatch(line); m != nil {
			if parsed, ok := e.dates.Parse(m[1]+" "+m[2], year); ok {
				currentDate = strPtr(parsed)
			}
			continue
		}

		if m := nubankTxnBody.FindStringSubmatch(line); m != nil && currentDate != nil {
			if excluded(line, nubankExclusions) {
				continue
			}
			value, err := money.Parse(m[2])
			if err != nil || !value.IsPositive() || !validDescription(m[1], 2, 200) {
				continue
			}
			items = append(items, entity.LineItem{
				Description: strings.TrimSpace(m[1]),
				Amount:      decPtr(value),
				Date:        currentDate,
			})
		}
	}

	return dedupeItems(items, maxLineItems)
}

func excluded(line string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
