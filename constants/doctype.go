package constants

// DocumentType classifies the overall kind of financial document.
type DocumentType string

const (
	DocBoleto      DocumentType = "boleto"
	DocCardInvoice DocumentType = "fatura_cartao"
	DocNotaFiscal  DocumentType = "nota_fiscal"
	DocStatement   DocumentType = "extrato"
	DocUnknown     DocumentType = "desconhecido"
)

// ExtractorType records which extraction path produced a record.
type ExtractorType string

const (
	ExtractorSpecialized ExtractorType = "specialized"
	ExtractorTemplate    ExtractorType = "template"
	ExtractorGeneric     ExtractorType = "generic"
)

// DefaultCurrency is the currency assumed when a document names none.
const DefaultCurrency = "BRL"
