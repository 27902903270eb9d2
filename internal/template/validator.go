// Package template manages community-submitted institution templates:
// validation of untrusted submissions, a pending/approved file store, and
// template-backed extraction for institutions without a specialized
// extractor.
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/entity"
)

// templateSchema gates the raw submission before any field-level checks, so
// malformed JSON shapes are rejected with a structural error instead of a
// confusing field error.
const templateSchema = `{
	"type": "object",
	"required": ["version", "institution_key", "display_name", "tax_id", "detection_patterns", "extraction_patterns", "author"],
	"properties": {
		"version": {"type": "string", "minLength": 1},
		"institution_key": {"type": "string", "minLength": 2, "maxLength": 50},
		"display_name": {"type": "string", "minLength": 2, "maxLength": 100},
		"tax_id": {"type": "string"},
		"detection_patterns": {
			"type": "array",
			"minItems": 1,
			"maxItems": 20,
			"items": {"type": "string", "minLength": 1, "maxLength": 500}
		},
		"extraction_patterns": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {"type": "string", "minLength": 1, "maxLength": 500}
		},
		"author": {"type": "string", "minLength": 1, "maxLength": 100},
		"description": {"type": "string", "maxLength": 1000}
	}
}`

var (
	keyPattern       = regexp.MustCompile(`^[a-z0-9_]+$`)
	taxIDShape       = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	compiledSchema   = jsonschema.MustCompileString("template.json", templateSchema)
	deniedSubstrings = []string{"exec", "eval", "import", "__", "system", "subprocess"}
)

// Validator checks untrusted template submissions. Each rejection carries a
// distinct code so submitters can tell a structural problem from a denied
// pattern.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// ValidateRaw runs the structural schema gate on a raw JSON submission and
// returns the decoded template on success.
func (v *Validator) ValidateRaw(raw []byte) (*entity.Template, error) {
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, common.NewAppError("TEMPLATE_BAD_JSON", "template is not valid json", err)
	}
	if err := compiledSchema.Validate(instance); err != nil {
		return nil, common.NewAppError("TEMPLATE_BAD_SHAPE", "template does not match the schema", err)
	}

	var tpl entity.Template
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return nil, common.NewAppError("TEMPLATE_BAD_JSON", "template is not valid json", err)
	}
	if err := v.Validate(&tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Validate runs the field-level checks on a decoded template.
func (v *Validator) Validate(tpl *entity.Template) error {
	if !keyPattern.MatchString(tpl.InstitutionKey) {
		return common.NewAppError("TEMPLATE_BAD_KEY",
			"institution_key must be lowercase letters, digits and underscores", common.ErrValidation)
	}
	if !taxIDShape.MatchString(tpl.TaxID) {
		return common.NewAppError("TEMPLATE_BAD_TAX_ID",
			"tax_id must look like XX.XXX.XXX/XXXX-XX", common.ErrValidation)
	}

	for _, p := range tpl.DetectionPatterns {
		if err := checkPattern(p); err != nil {
			return err
		}
	}
	for field, p := range tpl.ExtractionPatterns {
		if !constants.IsTemplateField(field) {
			return common.NewAppError("TEMPLATE_BAD_FIELD",
				"extraction field "+field+" is not allowed", common.ErrValidation)
		}
		if err := checkPattern(p); err != nil {
			return err
		}
	}
	return nil
}

// checkPattern rejects deny-listed substrings before attempting compilation.
// Patterns are matched against documents as Go regexps only, but the
// deny-list keeps code-shaped payloads out of the template files entirely.
func checkPattern(pattern string) error {
	lower := strings.ToLower(pattern)
	for _, denied := range deniedSubstrings {
		if strings.Contains(lower, denied) {
			return common.NewAppError("TEMPLATE_DENIED_PATTERN",
				"pattern contains denied token "+denied, common.ErrValidation)
		}
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return common.NewAppError("TEMPLATE_BAD_PATTERN",
			"pattern does not compile: "+pattern, err)
	}
	return nil
}

// Hash fingerprints the behavioral content of a template: the key and every
// pattern, with map iteration order pinned. Metadata edits do not change it.
func Hash(tpl *entity.Template) string {
	h := sha256.New()
	h.Write([]byte(tpl.InstitutionKey))
	for _, p := range tpl.DetectionPatterns {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	fields := make([]string, 0, len(tpl.ExtractionPatterns))
	for field := range tpl.ExtractionPatterns {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		h.Write([]byte{0})
		h.Write([]byte(field))
		h.Write([]byte{1})
		h.Write([]byte(tpl.ExtractionPatterns[field]))
	}
	return hex.EncodeToString(h.Sum(nil))
}
