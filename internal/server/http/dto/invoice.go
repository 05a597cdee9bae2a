package dto

// InvoiceResponse is the outcome of processing one document.
type InvoiceResponse struct {
	RawText string            `json:"rawText"`
	Fields  map[string]string `json:"fields"`
	Source  string            `json:"source"`
	Balance int64             `json:"balance"`
}

// ExportRequest carries fields to render as a spreadsheet.
type ExportRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// OCRResponse is returned by the OCR proxy.
type OCRResponse struct {
	Text string `json:"text"`
}
