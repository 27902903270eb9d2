package entity

// TemplateStatus is the lifecycle state of a community template.
type TemplateStatus string

const (
	TemplatePending  TemplateStatus = "pending"
	TemplateApproved TemplateStatus = "approved"
)

// Template is a community-submitted, declarative institution definition.
// Templates are pure data: detection and extraction patterns plus metadata,
// never executable code. After approval only the status/approver/timestamp
// fields change.
type Template struct {
	Version            string            `json:"version"`
	InstitutionKey     string            `json:"institution_key"`
	DisplayName        string            `json:"display_name"`
	TaxID              string            `json:"tax_id"`
	DetectionPatterns  []string          `json:"detection_patterns"`
	ExtractionPatterns map[string]string `json:"extraction_patterns"`
	Author             string            `json:"author"`
	Description        string            `json:"description,omitempty"`
	SubmittedAt        string            `json:"submitted_at"`
	Status             TemplateStatus    `json:"status"`
	ApprovedAt         string            `json:"approved_at,omitempty"`
	ApprovedBy         string            `json:"approved_by,omitempty"`
	TemplateHash       string            `json:"template_hash"`
}
