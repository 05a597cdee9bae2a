package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

var nonAmount = regexp.MustCompile(`[^0-9.,\-]`)

// invoiceSchema requires exactly the invoice fields, all strings.
func invoiceSchema() map[string]any {
	props := make(map[string]any, len(model.InvoiceFields))
	required := make([]string, 0, len(model.InvoiceFields))
	for _, name := range model.InvoiceFields {
		props[name] = map[string]any{"type": "string"}
		required = append(required, name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("invoice.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("invoice.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// outermostObject cuts the reply down to its first '{' through last '}'.
func outermostObject(reply string) (string, bool) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return reply[start : end+1], true
}

// parseFields validates doc against schema and normalizes the result.
func parseFields(schema *jsonschema.Schema, doc []byte) (map[string]string, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("unmarshal reply: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("reply does not match schema: %w", err)
	}

	var fields map[string]string
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	for name, value := range fields {
		fields[name] = strings.TrimSpace(value)
	}
	for _, name := range model.MonetaryFields {
		fields[name] = stripCurrency(fields[name])
	}
	return model.CompleteFields(fields), nil
}

func stripCurrency(amount string) string {
	return nonAmount.ReplaceAllString(amount, "")
}
