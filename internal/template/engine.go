package template

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/finparse/financial-parser/internal/dates"
	"github.com/finparse/financial-parser/internal/entity"
	"github.com/finparse/financial-parser/internal/money"
)

// compiledTemplate pairs an approved template with its patterns compiled
// once, so matching does not touch the disk or the regexp compiler.
type compiledTemplate struct {
	template   entity.Template
	detection  []*regexp.Regexp
	extraction map[string]*regexp.Regexp
}

// Engine applies approved templates to documents. It sits between the
// specialized extractors and the generic fallback: when no specialized
// extractor claims a document, an approved template may. The approved set is
// held compiled in memory and reloaded when the store's version changes.
type Engine struct {
	store  *Store
	dates  *dates.Normalizer
	logger *slog.Logger

	mu       sync.Mutex
	compiled []compiledTemplate
	version  uint64
	loaded   bool
}

func NewEngine(store *Store, normalizer *dates.Normalizer, logger *slog.Logger) *Engine {
	return &Engine{store: store, dates: normalizer, logger: logger}
}

// approvedSet returns the compiled approved templates, reloading from the
// store when an approval has changed the set since the last load.
func (e *Engine) approvedSet() []compiledTemplate {
	e.mu.Lock()
	defer e.mu.Unlock()

	version := e.store.ApprovedVersion()
	if e.loaded && version == e.version {
		return e.compiled
	}

	templates, err := e.store.ListApproved()
	if err != nil {
		e.logger.Warn("cannot list approved templates", "error", err)
		return e.compiled
	}

	compiled := make([]compiledTemplate, 0, len(templates))
	for _, tpl := range templates {
		ct := compiledTemplate{
			template:   tpl,
			extraction: make(map[string]*regexp.Regexp, len(tpl.ExtractionPatterns)),
		}
		for _, pattern := range tpl.DetectionPatterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				e.logger.Warn("skipping bad detection pattern",
					"institution", tpl.InstitutionKey, "error", err)
				continue
			}
			ct.detection = append(ct.detection, re)
		}
		for field, pattern := range tpl.ExtractionPatterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				e.logger.Warn("skipping bad extraction pattern",
					"institution", tpl.InstitutionKey, "field", field, "error", err)
				continue
			}
			ct.extraction[field] = re
		}
		compiled = append(compiled, ct)
	}

	e.compiled = compiled
	e.version = version
	e.loaded = true
	return e.compiled
}

// Match returns the approved template whose detection patterns match the
// text most often. ok is false when no template matches at all.
func (e *Engine) Match(text string) (*entity.Template, bool) {
	set := e.approvedSet()

	var best *entity.Template
	bestHits := 0
	for i := range set {
		hits := 0
		for _, re := range set[i].detection {
			hits += len(re.FindAllString(text, -1))
		}
		if hits > bestHits {
			best = &set[i].template
			bestHits = hits
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// Extract applies the template's extraction patterns to the text. Fields the
// patterns miss fall back to the template's own metadata where that makes
// sense (display name, tax id); everything else stays absent.
func (e *Engine) Extract(tpl *entity.Template, text string) *entity.FinancialRecord {
	record := entity.NewFinancialRecord()
	record.IssuerName = strPtr(tpl.DisplayName)
	record.IssuerTaxID = strPtr(tpl.TaxID)

	year, _ := e.dates.InferYear(text)

	for field, re := range e.extractionPatterns(tpl) {
		if field == "items" {
			record.Items = e.extractItems(re, text)
			continue
		}
		value := firstCapture(re, text)
		if value == "" {
			continue
		}
		e.assign(record, field, value, year)
	}
	return record
}

// extractionPatterns serves the cached compiled patterns for a template, or
// compiles on the spot for templates the cache has not seen.
func (e *Engine) extractionPatterns(tpl *entity.Template) map[string]*regexp.Regexp {
	e.mu.Lock()
	for i := range e.compiled {
		if e.compiled[i].template.TemplateHash == tpl.TemplateHash {
			patterns := e.compiled[i].extraction
			e.mu.Unlock()
			return patterns
		}
	}
	e.mu.Unlock()

	patterns := make(map[string]*regexp.Regexp, len(tpl.ExtractionPatterns))
	for field, pattern := range tpl.ExtractionPatterns {
		if re, err := regexp.Compile("(?i)" + pattern); err == nil {
			patterns[field] = re
		}
	}
	return patterns
}

func (e *Engine) assign(record *entity.FinancialRecord, field, value string, year int) {
	switch field {
	case "issuer_name":
		record.IssuerName = strPtr(value)
	case "tax_id":
		record.IssuerTaxID = strPtr(value)
	case "payer_tax_id":
		record.PayerTaxID = strPtr(value)
	case "issue_date":
		if parsed, ok := e.dates.Parse(value, year); ok {
			record.IssueDate = strPtr(parsed)
		}
	case "due_date":
		if parsed, ok := e.dates.Parse(value, year); ok {
			record.DueDate = strPtr(parsed)
		}
	case "total_amount":
		if v, err := money.Parse(value); err == nil {
			record.TotalAmount = &v
		}
	case "document_number":
		record.DocumentNumber = strPtr(value)
	}
}

// extractItems expects a pattern with two capture groups, description then
// amount. Lines where the amount does not parse are skipped.
func (e *Engine) extractItems(re *regexp.Regexp, text string) []entity.LineItem {
	var items []entity.LineItem
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) < 3 {
			continue
		}
		value, err := money.Parse(m[2])
		if err != nil {
			continue
		}
		description := strings.TrimSpace(m[1])
		if description == "" {
			continue
		}
		items = append(items, entity.LineItem{Description: description, Amount: &value})
		if len(items) == 50 {
			break
		}
	}
	return items
}

// firstCapture returns the first capture group when the pattern has one,
// else the whole match.
func firstCapture(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}

func strPtr(s string) *string { return &s }
