// Package extract turns document text into FinancialRecords. Each supported
// institution has a specialized extractor tuned to its invoice layout; the
// generic extractor is the institution-agnostic terminal fallback.
package extract

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finparse/financial-parser/internal/entity"
)

// Extractor is the contract every specialized extractor implements.
type Extractor interface {
	// Institution returns the institution key this extractor serves.
	Institution() string
	// CanHandle reports whether the text looks like this institution's
	// document. It requires at least two independent signature matches so a
	// passing mention of an institution name is never enough.
	CanHandle(text string) bool
	// Extract parses the text into a record. It may fail on malformed
	// input; callers fall back to the generic extractor.
	Extract(text string) (*entity.FinancialRecord, error)
}

// maxLineItems caps extracted transaction lists; a runaway pattern should
// never produce an unbounded record.
const maxLineItems = 50

// descriptionBounds rejects near-empty or absurdly long descriptions picked
// up by greedy patterns.
func validDescription(desc string, minLen, maxLen int) bool {
	n := len(strings.TrimSpace(desc))
	return n > minLen && n < maxLen
}

// dedupeItems removes duplicate line items by (date, description, amount)
// and caps the result, preserving first-seen order.
func dedupeItems(items []entity.LineItem, limit int) []entity.LineItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]entity.LineItem, 0, len(items))
	for _, item := range items {
		key := itemKey(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}

func itemKey(item entity.LineItem) string {
	var b strings.Builder
	if item.Date != nil {
		b.WriteString(*item.Date)
	}
	b.WriteByte('|')
	b.WriteString(item.Description)
	b.WriteByte('|')
	if item.Amount != nil {
		b.WriteString(item.Amount.String())
	}
	return b.String()
}

func strPtr(s string) *string { return &s }

func itoa(n int) string { return strconv.Itoa(n) }

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }
