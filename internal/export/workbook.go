// Package export renders extracted invoice fields as spreadsheets.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// SheetName is the worksheet holding the exported invoice.
const SheetName = "Invoice"

// ContentType is the media type of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook builds an XLSX document with the field names on the first row and
// their values on the second.
func Workbook(fields map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, name := range model.InvoiceFields {
		header, _ := excelize.CoordinatesToCellName(i+1, 1)
		value, _ := excelize.CoordinatesToCellName(i+1, 2)
		if err := f.SetCellValue(SheetName, header, name); err != nil {
			return nil, fmt.Errorf("write header %s: %w", name, err)
		}
		if err := f.SetCellValue(SheetName, value, fields[name]); err != nil {
			return nil, fmt.Errorf("write value %s: %w", name, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(model.InvoiceFields))
	_ = f.SetCellStyle(SheetName, "A1", last+"1", bold)
	_ = f.SetColWidth(SheetName, "A", last, 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName names the download for an invoice number.
func FileName(invoiceNumber string) string {
	if invoiceNumber == "" {
		return "invoice.xlsx"
	}
	clean := make([]rune, 0, len(invoiceNumber))
	for _, r := range invoiceNumber {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			clean = append(clean, r)
		default:
			clean = append(clean, '_')
		}
	}
	return "invoice_" + string(clean) + ".xlsx"
}
