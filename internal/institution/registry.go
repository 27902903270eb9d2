// Package institution knows the issuing institutions: a static registry of
// tax IDs and aliases, and a signature-pattern detector over document text.
package institution

import (
	"regexp"
	"strings"
)

// registryEntry is one known institution name with its formatted CNPJ.
// Order matters: Identify returns the first match by table order.
type registryEntry struct {
	name  string
	taxID string
}

// knownTaxIDs holds the formatted CNPJs of Brazilian financial institutions,
// keyed by the lowercase name they appear under in documents.
var knownTaxIDs = []registryEntry{
	// digital banks
	{"nubank", "18.236.120/0001-58"},
	{"nu pagamentos", "18.236.120/0001-58"},
	{"inter", "00.416.968/0001-01"},
	{"banco inter", "00.416.968/0001-01"},
	{"c6 bank", "31.872.495/0001-72"},
	{"c6", "31.872.495/0001-72"},
	{"picpay", "14.176.050/0001-70"},
	{"neon", "20.855.875/0001-40"},
	{"next", "92.894.922/0001-08"},
	{"banco original", "92.894.922/0001-08"},
	{"will bank", "36.113.876/0001-91"},

	// traditional banks
	{"banco do brasil", "00.000.000/0001-91"},
	{"itau", "60.701.190/0001-04"},
	{"itaú", "60.701.190/0001-04"},
	{"bradesco", "60.746.948/0001-12"},
	{"santander", "90.400.888/0001-42"},
	{"caixa", "00.360.305/0001-04"},
	{"banco safra", "58.160.789/0001-28"},
	{"btg pactual", "30.306.294/0001-45"},
	{"citibank", "33.479.023/0001-80"},
	{"hsbc", "01.701.201/0001-89"},
	{"banrisul", "92.702.067/0001-96"},

	// fintechs and card issuers
	{"creditas", "17.262.245/0001-78"},
	{"stone", "16.501.555/0001-57"},
	{"pagseguro", "08.561.701/0001-01"},
	{"mercado pago", "10.573.521/0001-91"},
	{"american express", "74.173.113/0001-00"},
	{"amex", "74.173.113/0001-00"},
}

// nameAliases maps alternative spellings to a canonical registry key.
var nameAliases = map[string]string{
	"nu pagamentos sa":  "nubank",
	"nu pagamentos s.a": "nubank",
	"banco inter sa":    "inter",
	"banco inter s.a":   "inter",
	"itau unibanco":     "itau",
	"itaú unibanco":     "itau",
	"banco bradesco sa": "bradesco",
	"c6bank":            "c6",
	"bb":                "banco do brasil",
}

// friendlyNames maps registry keys to display names.
var friendlyNames = map[string]string{
	"nubank":          "Nubank",
	"nu pagamentos":   "Nubank",
	"inter":           "Banco Inter",
	"banco inter":     "Banco Inter",
	"c6":              "C6 Bank",
	"c6 bank":         "C6 Bank",
	"picpay":          "PicPay",
	"banco do brasil": "Banco do Brasil",
	"bb":              "Banco do Brasil",
	"itau":            "Itaú Unibanco",
	"itaú":            "Itaú Unibanco",
	"bradesco":        "Bradesco",
	"santander":       "Santander",
	"caixa":           "Caixa Econômica Federal",
}

var nonDigits = regexp.MustCompile(`\D`)

// Registry is the static, immutable table of known institutions. It backs
// tax-id lookups when an extractor could not find one in the text itself.
type Registry struct{}

// NewRegistry returns the registry. The table is static; the constructor
// exists so ownership stays explicit in the orchestrator.
func NewRegistry() *Registry {
	return &Registry{}
}

// TaxIDFor returns the formatted CNPJ registered for the given key.
func (r *Registry) TaxIDFor(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	normalized := normalizeName(key)

	for _, e := range knownTaxIDs {
		if e.name == normalized {
			return e.taxID, true
		}
	}
	if canonical, ok := nameAliases[normalized]; ok {
		for _, e := range knownTaxIDs {
			if e.name == canonical {
				return e.taxID, true
			}
		}
	}
	// partial match as last resort
	for _, e := range knownTaxIDs {
		if strings.Contains(normalized, e.name) || strings.Contains(e.name, normalized) {
			return e.taxID, true
		}
	}
	return "", false
}

// Identify scans the text for direct mentions of known institution names and
// returns the display name and CNPJ of the first match, by table order.
func (r *Registry) Identify(text string) (name, taxID string, ok bool) {
	textLower := strings.ToLower(text)
	for _, e := range knownTaxIDs {
		if strings.Contains(textLower, e.name) {
			return FriendlyName(e.name), e.taxID, true
		}
	}
	return "", "", false
}

// FriendlyName returns the display name for a registry key, falling back to
// title-casing the key itself.
func FriendlyName(key string) string {
	if name, ok := friendlyNames[key]; ok {
		return name
	}
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// FormatTaxID renders a CNPJ as XX.XXX.XXX/XXXX-XX. Inputs that do not carry
// exactly 14 digits are returned unchanged.
func FormatTaxID(taxID string) string {
	digits := nonDigits.ReplaceAllString(taxID, "")
	if len(digits) != 14 {
		return taxID
	}
	return digits[:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:]
}

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, ".", "")
	n = strings.ReplaceAll(n, "-", "")
	return strings.TrimSpace(n)
}
