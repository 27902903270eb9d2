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

// PicPay's own CNPJ, used when the invoice does not print one.
const (
	picpayName  = "PicPay"
	picpayTaxID = "14.176.050/0001-70"
)

var picpayIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)picpay`),
	regexp.MustCompile(`(?i)pic pay`),
	regexp.MustCompile(`14\.176\.050/0001-70`),
	regexp.MustCompile(`(?i)fatura do cart[aã]o`),
}

var (
	picpayCNPJ    = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	picpayClosing = regexp.MustCompile(`(?i)data de fechamento[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`)
	picpayDue     = regexp.MustCompile(`(?i)data de vencimento[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`)
	picpayRef     = regexp.MustCompile(`(?i)refer[eê]ncia[:\s]*(\d+)`)

	// "02/11 AMAZON   R$ 250,00"
	picpayTxn = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})\s+(.+?)\s+R\$\s*([\d.,]+)\s*$`)
)

var picpaySkipKeywords = []string{
	"total", "resumo", "fatura", "vencimento", "fechamento",
	"cliente", "cnpj", "referência", "limite",
}

// PicPayExtractor handles PicPay credit card invoices.
type PicPayExtractor struct {
	dates *dates.Normalizer
}

func NewPicPayExtractor(normalizer *dates.Normalizer) *PicPayExtractor {
	return &PicPayExtractor{dates: normalizer}
}

func (e *PicPayExtractor) Institution() string { return string(constants.PicPay) }

func (e *PicPayExtractor) CanHandle(text string) bool {
	matches := 0
	for _, re := range picpayIndicators {
		if re.MatchString(text) {
			matches++
		}
	}
	return matches >= 2
}

func (e *PicPayExtractor) Extract(text string) (*entity.FinancialRecord, error) {
	record := entity.NewFinancialRecord()
	record.IssuerName = strPtr(picpayName)

	// PicPay invoices print the CNPJ; prefer the one in the document.
	if m := picpayCNPJ.FindString(text); m != "" {
		record.IssuerTaxID = strPtr(m)
	} else {
		record.IssuerTaxID = strPtr(picpayTaxID)
	}

	year, _ := e.dates.InferYear(text)

	// the closing date is the nearest thing to an issue date on this layout
	if m := picpayClosing.FindStringSubmatch(text); m != nil {
		if parsed, ok := e.dates.Parse(m[1], year); ok {
			record.IssueDate = strPtr(parsed)
		}
	}
	if m := picpayDue.FindStringSubmatch(text); m != nil {
		if parsed, ok := e.dates.Parse(m[1], year); ok {
			record.DueDate = strPtr(parsed)
		}
	}

	record.TotalAmount = firstAmountMatch(text, interTotalPatterns)
	if m := picpayRef.FindStringSubmatch(text); m != nil {
		record.DocumentNumber = strPtr(m[1])
	}

	record.Items = e.extractTransactions(text, year)

	if record.TotalAmount == nil && record.DueDate == nil && len(record.Items) == 0 {
		return nil, common.NewAppError("EXTRACT_FAILED", "no picpay invoice structure found", common.ErrInvalidInput)
	}
	return record, nil
}

func (e *PicPayExtractor) extractTransactions(text string, year int) []entity.LineItem {
	var items []entity.LineItem

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		skip := false
		for _, kw := range picpaySkipKeywords {
			if strings.Contains(lower, kw) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		m := picpayTxn.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := money.Parse(m[4])
		if err != nil || !value.IsPositive() {
			continue
		}
		description := strings.TrimSpace(m[3])
		if !validDescription(description, 3, 200) {
			continue
		}

		item := entity.LineItem{Description: description, Amount: decPtr(value)}
		if year != 0 {
			if parsed, ok := e.dates.Parse(m[1]+"/"+m[2]+"/"+itoa(year), 0); ok {
				item.Date = strPtr(parsed)
			}
		}
		items = append(items, item)
	}

	return dedupeItems(items, maxLineItems)
}
