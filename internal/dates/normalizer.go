// Package dates normalizes the date spellings found in Brazilian financial
// documents into ISO YYYY-MM-DD form.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthAbbr maps Portuguese three-letter month abbreviations.
var monthAbbr = map[string]int{
	"JAN": 1, "FEV": 2, "MAR": 3, "ABR": 4,
	"MAI": 5, "JUN": 6, "JUL": 7, "AGO": 8,
	"SET": 9, "OUT": 10, "NOV": 11, "DEZ": 12,
}

// monthFull maps full Portuguese month names.
var monthFull = map[string]int{
	"janeiro": 1, "fevereiro": 2, "março": 3, "marco": 3, "abril": 4,
	"maio": 5, "junho": 6, "julho": 7, "agosto": 8,
	"setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
}

// AbbrAlternation is the regex alternation of month abbreviations, shared
// with the specialized extractors.
const AbbrAlternation = `JAN|FEV|MAR|ABR|MAI|JUN|JUL|AGO|SET|OUT|NOV|DEZ`

var (
	// DD/MM/YYYY or DD-MM-YYYY
	numericPattern = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	// DD MMM (17 OUT, 24 NOV), year supplied by the caller
	abbrPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + AbbrAlternation + `)\b`)
	// DD de MMMM de YYYY (17 de outubro de 2025)
	fullPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+(\p{L}+)\s+de\s+(\d{4})\b`)

	yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)
)

// Normalizer parses multiple date spellings into canonical YYYY-MM-DD.
type Normalizer struct {
	defaultYear int
}

// NewNormalizer creates a normalizer. defaultYear backs fragments without a
// year when no context year is given; zero means the current year.
func NewNormalizer(defaultYear int) *Normalizer {
	if defaultYear == 0 {
		defaultYear = time.Now().Year()
	}
	return &Normalizer{defaultYear: defaultYear}
}

// Parse tries each supported spelling in order and returns the first valid
// parse as YYYY-MM-DD. contextYear backs abbreviated fragments that omit the
// year; pass 0 to use the normalizer's default.
func (n *Normalizer) Parse(fragment string, contextYear int) (string, bool) {
	year := contextYear
	if year == 0 {
		year = n.defaultYear
	}

	if m := numericPattern.FindStringSubmatch(fragment); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		return formatDate(y, month, day)
	}

	if m := abbrPattern.FindStringSubmatch(fragment); m != nil {
		day, _ := strconv.Atoi(m[1])
		if month, ok := monthAbbr[strings.ToUpper(m[2])]; ok {
			return formatDate(year, month, day)
		}
	}

	if m := fullPattern.FindStringSubmatch(fragment); m != nil {
		day, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[3])
		if month, ok := monthFull[strings.ToLower(m[2])]; ok {
			return formatDate(y, month, day)
		}
	}

	return "", false
}

// formatDate validates ranges and renders YYYY-MM-DD.
func formatDate(year, month, day int) (string, bool) {
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1900 || year > 2100 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// Match pairs a date fragment with its normalized form.
type Match struct {
	Original   string
	Normalized string
}

// ExtractAll returns every date found in the text, in pattern order.
func (n *Normalizer) ExtractAll(text string, contextYear int) []Match {
	var results []Match
	for _, re := range []*regexp.Regexp{numericPattern, abbrPattern, fullPattern} {
		for _, original := range re.FindAllString(text, -1) {
			if normalized, ok := n.Parse(original, contextYear); ok {
				results = append(results, Match{Original: original, Normalized: normalized})
			}
		}
	}
	return results
}

// InferYear scans for 4-digit years with the 20xx prefix and returns the
// most frequent one. Ties keep the first year encountered.
func (n *Normalizer) InferYear(text string) (int, bool) {
	matches := yearPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0, false
	}

	counts := make(map[string]int)
	var order []string
	for _, y := range matches {
		if counts[y] == 0 {
			order = append(order, y)
		}
		counts[y]++
	}

	best := order[0]
	for _, y := range order[1:] {
		if counts[y] > counts[best] {
			best = y
		}
	}
	year, _ := strconv.Atoi(best)
	return year, true
}

var issueLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:data de )?emiss[aã]o[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	regexp.MustCompile(`(?i)EMISS[AÃ]O[:\s]*(\d{1,2}\s+\p{L}+\s+\d{4})`),
	regexp.MustCompile(`(?i)emitid[ao] em[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
}

var dueLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:data de )?vencimento[:\s]*(\d{1,2}\s+\p{L}+\s+\d{4})`),
	regexp.MustCompile(`(?i)(?:data de )?vencimento[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	regexp.MustCompile(`(?i)vence em[:\s]*(\d{1,2}\s+\p{L}+\s+\d{4})`),
	regexp.MustCompile(`(?i)vence em[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	regexp.MustCompile(`(?i)pagar at[eé][:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
}

// ExtractIssueDate finds the issue date: label-anchored patterns first, then
// the first date anywhere in the text.
func (n *Normalizer) ExtractIssueDate(text string) (string, bool) {
	year, _ := n.InferYear(text)
	for _, re := range issueLabelPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if parsed, ok := n.Parse(m[1], year); ok {
				return parsed, true
			}
		}
	}
	if dates := n.ExtractAll(text, year); len(dates) > 0 {
		return dates[0].Normalized, true
	}
	return "", false
}

// ExtractDueDate finds the due date: label-anchored patterns first, then the
// last date anywhere in the text.
func (n *Normalizer) ExtractDueDate(text string) (string, bool) {
	year, _ := n.InferYear(text)
	for _, re := range dueLabelPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if parsed, ok := n.Parse(m[1], year); ok {
				return parsed, true
			}
		}
	}
	if dates := n.ExtractAll(text, year); len(dates) > 0 {
		return dates[len(dates)-1].Normalized, true
	}
	return "", false
}
