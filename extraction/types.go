package extraction

import (
	"mime"
	"path/filepath"
	"strings"
)

// Content types accepted for document uploads. ContentTypeUnknown makes the
// client sniff the type from the file name.
const (
	ContentTypePDF     = "application/pdf"
	ContentTypePNG     = "image/png"
	ContentTypeJPEG    = "image/jpeg"
	ContentTypeTIFF    = "image/tiff"
	ContentTypeUnknown = "unknown"
)

// Document types known to the service.
const (
	DocumentTypeInvoice       = "invoice"
	DocumentTypePaymentAdvice = "paymentAdvice"
)

// FileTypeExcel is the capability-mapping file type for spreadsheet uploads.
const FileTypeExcel = "excel"

// Enrichment data types and subtypes.
const (
	DataTypeBusinessEntity = "businessEntity"
	DataTypeEmployee       = "employee"

	DataSubtypeSupplier    = "supplier"
	DataSubtypeCustomer    = "customer"
	DataSubtypeCompanyCode = "companyCode"
)

// ExtractionFields names the header and line item fields to extract when no
// schema is used.
type ExtractionFields struct {
	HeaderFields   []string `json:"headerFields"`
	LineItemFields []string `json:"lineItemFields"`
}

// DocumentOptions is the payload shape the service expects alongside an
// uploaded document. It has to include at least a valid client ID and
// document type.
type DocumentOptions struct {
	ClientID     string            `json:"clientId"`
	DocumentType string            `json:"documentType"`
	Extraction   *ExtractionFields `json:"extraction,omitempty"`
	SchemaID     string            `json:"schemaId,omitempty"`
	TemplateID   string            `json:"templateId,omitempty"`
	ReceivedDate string            `json:"receivedDate,omitempty"`
	Enrichment   map[string]any    `json:"enrichment,omitempty"`
}

// NewDocumentOptions builds upload options from user-facing parameters.
// When schemaID is set, the explicit field lists are ignored, matching the
// service's precedence.
func NewDocumentOptions(clientID, documentType string, headerFields, lineItemFields []string, schemaID string) DocumentOptions {
	options := DocumentOptions{
		ClientID:     clientID,
		DocumentType: documentType,
	}
	if schemaID != "" {
		options.SchemaID = schemaID
		return options
	}
	options.Extraction = &ExtractionFields{
		HeaderFields:   emptyIfNil(headerFields),
		LineItemFields: emptyIfNil(lineItemFields),
	}
	return options
}

// CapabilityMappingOptions maps customer spreadsheet columns onto the
// extraction fields of a document type.
type CapabilityMappingOptions struct {
	DocumentType   string   `json:"documentType"`
	FileType       string   `json:"fileType"`
	HeaderFields   []string `json:"headerFields"`
	LineItemFields []string `json:"lineItemFields"`
}

// ClientInfo identifies one client for whom documents can be uploaded.
type ClientInfo struct {
	ID   string `json:"clientId"`
	Name string `json:"clientName"`
}

// EnrichmentRecord addresses a single enrichment data record for deletion.
type EnrichmentRecord struct {
	ID          string `json:"id"`
	System      string `json:"system,omitempty"`
	CompanyCode string `json:"companyCode,omitempty"`
}

// ResultParams filter what GetExtractionForDocument returns.
type ResultParams struct {
	// ExtractedValues selects the extracted values (true) or the ground
	// truth (false). When nil, the ground truth is returned if available.
	ExtractedValues *bool

	// ReturnNullValues includes fields extracted as null in the response.
	ReturnNullValues bool
}

// SplitFieldList turns a comma separated field list into a slice, trimming
// surrounding whitespace of each entry.
func SplitFieldList(fields string) []string {
	if fields == "" {
		return nil
	}
	parts := strings.Split(fields, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func emptyIfNil(fields []string) []string {
	if fields == nil {
		return []string{}
	}
	return fields
}

// sniffMimeType guesses the content type from a file name. It is used only
// when the caller declines to specify one.
func sniffMimeType(path string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		return "application/octet-stream"
	}
	// TypeByExtension may attach a charset parameter.
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		return base
	}
	return mimeType
}
