package usecase

import (
	"regexp"
	"strings"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

var (
	invoiceNumberPattern = regexp.MustCompile(`(?i)(?:Invoice|INV)[\s#:-]*([A-Z0-9-]+)`)
	datePattern          = regexp.MustCompile(`(?i)Date:\s*([^\n]+)`)
	totalPattern         = regexp.MustCompile(`(?i)Total:\s*\$?([0-9,]+\.?[0-9]*)`)
	vendorPattern        = regexp.MustCompile(`(?m)^([^\n]+Corporation|[^\n]+Company|[^\n]+Inc)`)
)

// FallbackExtract pulls the few fields recognizable by pattern. Every field is
// present in the result, unmatched ones are empty.
func FallbackExtract(text string) map[string]string {
	fields := model.EmptyFields()
	fields[model.FieldInvoiceNumber] = firstGroup(invoiceNumberPattern, text)
	fields[model.FieldInvoiceDate] = firstGroup(datePattern, text)
	fields[model.FieldTotalAmount] = firstGroup(totalPattern, text)
	fields[model.FieldVendorName] = firstGroup(vendorPattern, text)
	return fields
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
