package model

// Invoice field names.
const (
	FieldInvoiceNumber = "Invoice Number"
	FieldInvoiceDate   = "Invoice Date"
	FieldVendorName    = "Vendor Name"
	FieldVendorAddress = "Vendor Address"
	FieldTotalAmount   = "Total Amount"
	FieldTaxAmount     = "Tax Amount"
	FieldSubtotal      = "Subtotal"
	FieldDueDate       = "Due Date"
	FieldPurchaseOrder = "Purchase Order"
	FieldDescription   = "Description"
)

// InvoiceFields is the fixed ordered set of extracted fields.
var InvoiceFields = []string{
	FieldInvoiceNumber,
	FieldInvoiceDate,
	FieldVendorName,
	FieldVendorAddress,
	FieldTotalAmount,
	FieldTaxAmount,
	FieldSubtotal,
	FieldDueDate,
	FieldPurchaseOrder,
	FieldDescription,
}

// MonetaryFields hold amounts stripped of currency symbols.
var MonetaryFields = []string{FieldTotalAmount, FieldTaxAmount, FieldSubtotal}

// ExtractionSource tells which extractor produced the fields.
type ExtractionSource string

const (
	SourceLLM      ExtractionSource = "llm"
	SourceFallback ExtractionSource = "fallback"
)

// InvoiceRecord is the transient result of processing one document.
type InvoiceRecord struct {
	RawText string
	Fields  map[string]string
	Source  ExtractionSource
}

// EmptyFields returns a map holding every invoice field set to "".
func EmptyFields() map[string]string {
	fields := make(map[string]string, len(InvoiceFields))
	for _, name := range InvoiceFields {
		fields[name] = ""
	}
	return fields
}

// CompleteFields copies known fields from src onto a full field map; unknown keys are dropped.
func CompleteFields(src map[string]string) map[string]string {
	fields := EmptyFields()
	for _, name := range InvoiceFields {
		if v, ok := src[name]; ok {
			fields[name] = v
		}
	}
	return fields
}

// Submission is a processed invoice plus the balance left after its charge.
type Submission struct {
	Record  InvoiceRecord
	Balance int64
}
