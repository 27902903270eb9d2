package constants

// Institution is the canonical key for an issuing financial institution.
type Institution string

// Stable values (store these exact strings in feedback rows and templates).
const (
	Nubank    Institution = "nubank"
	Inter     Institution = "inter"
	C6        Institution = "c6"
	PicPay    Institution = "picpay"
	Itau      Institution = "itau"
	Bradesco  Institution = "bradesco"
	Santander Institution = "santander"
	BB        Institution = "bb"
	Caixa     Institution = "caixa"
	Unknown   Institution = "unknown"
)

// allInstitutions keeps declaration order; the detector relies on it for
// tie-breaking, so never reorder.
var allInstitutions = []Institution{
	Nubank,
	Inter,
	C6,
	PicPay,
	Itau,
	Bradesco,
	Santander,
	BB,
	Caixa,
}

// Institutions returns the known institution keys in declaration order.
func Institutions() []Institution {
	out := make([]Institution, len(allInstitutions))
	copy(out, allInstitutions)
	return out
}

// InstitutionStrings returns the known institution keys as strings.
func InstitutionStrings() []string {
	result := make([]string, len(allInstitutions))
	for i, inst := range allInstitutions {
		result[i] = string(inst)
	}
	return result
}

// IsKnownInstitution reports whether key is one of the registered keys.
func IsKnownInstitution(key string) bool {
	for _, inst := range allInstitutions {
		if string(inst) == key {
			return true
		}
	}
	return false
}
