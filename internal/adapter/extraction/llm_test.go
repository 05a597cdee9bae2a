package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func fullReply(overrides map[string]string) string {
	fields := model.EmptyFields()
	for k, v := range overrides {
		fields[k] = v
	}
	b, _ := json.Marshal(fields)
	return string(b)
}

func newTestLLM(t *testing.T, reply string, status int) *LLMClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" || r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("missing auth headers")
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "Invoice text:") {
			t.Errorf("unexpected request %+v", req)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": reply}},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewLLMClient(srv.URL, "secret", "test-model", testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestNewLLMClientValidatesURL(t *testing.T) {
	if _, err := NewLLMClient("://bad", "k", "m", testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewLLMClient("relative", "k", "m", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestLLMExtract(t *testing.T) {
	reply := "Here is the data:\n" + fullReply(map[string]string{
		model.FieldInvoiceNumber: " INV-001 ",
		model.FieldTotalAmount:   "$1,250.00",
		model.FieldTaxAmount:     "KES 200",
		model.FieldVendorName:    "Acme Corporation",
	}) + "\nLet me know if you need more."
	client := newTestLLM(t, reply, http.StatusOK)

	fields, err := client.Extract(context.Background(), "Invoice #INV-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != len(model.InvoiceFields) {
		t.Fatalf("expected all fields, got %d", len(fields))
	}
	if fields[model.FieldInvoiceNumber] != "INV-001" {
		t.Fatalf("expected trimmed invoice number, got %q", fields[model.FieldInvoiceNumber])
	}
	if fields[model.FieldTotalAmount] != "1,250.00" || fields[model.FieldTaxAmount] != "200" {
		t.Fatalf("expected currency stripped, got %q and %q", fields[model.FieldTotalAmount], fields[model.FieldTaxAmount])
	}
}

func TestLLMExtractRejectsMalformedReplies(t *testing.T) {
	partial, _ := json.Marshal(map[string]string{model.FieldInvoiceNumber: "1"})
	extra := strings.TrimSuffix(fullReply(nil), "}") + `,"Currency":"USD"}`
	numeric := strings.Replace(fullReply(nil), `"Total Amount":""`, `"Total Amount":12.5`, 1)

	cases := []struct {
		name   string
		reply  string
		status int
	}{
		{name: "no json", reply: "I could not read this invoice.", status: http.StatusOK},
		{name: "broken json", reply: "{not json}", status: http.StatusOK},
		{name: "missing keys", reply: string(partial), status: http.StatusOK},
		{name: "extra keys", reply: extra, status: http.StatusOK},
		{name: "non string value", reply: numeric, status: http.StatusOK},
		{name: "upstream error", reply: fullReply(nil), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestLLM(t, tc.reply, tc.status)
			if _, err := client.Extract(context.Background(), "text"); !errors.Is(err, domainErrors.ErrExtractionService) {
				t.Fatalf("expected extraction error, got %v", err)
			}
		})
	}
}

func TestDisabledAlwaysFails(t *testing.T) {
	if _, err := (Disabled{}).Extract(context.Background(), "text"); !errors.Is(err, domainErrors.ErrExtractionService) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestBuildPromptListsFields(t *testing.T) {
	prompt := BuildPrompt("Total: 5")
	for _, name := range model.InvoiceFields {
		if !strings.Contains(prompt, `"`+name+`"`) {
			t.Fatalf("prompt misses field %s", name)
		}
	}
	if !strings.HasSuffix(prompt, "Total: 5") {
		t.Fatal("prompt must end with the invoice text")
	}
}

func TestOutermostObject(t *testing.T) {
	if got, ok := outermostObject(`xx {"a":{"b":1}} yy`); !ok || got != `{"a":{"b":1}}` {
		t.Fatalf("unexpected cut %q ok=%v", got, ok)
	}
	if _, ok := outermostObject("} no {"); ok {
		t.Fatal("expected no object")
	}
}
