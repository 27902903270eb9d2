package constants

// TemplateFields is the allow-list of extraction field names a community
// template may target. Anything else is rejected at submission time.
var TemplateFields = []string{
	"issuer_name",
	"tax_id",
	"payer_tax_id",
	"issue_date",
	"due_date",
	"total_amount",
	"document_number",
	"items",
}

// IsTemplateField reports whether name is an allow-listed extraction field.
func IsTemplateField(name string) bool {
	for _, f := range TemplateFields {
		if f == name {
			return true
		}
	}
	return false
}
