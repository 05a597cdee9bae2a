package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/pkg/session"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/middleware"
	testhelpers "github.com/Blu-Chips/Invoice-Extractor/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewJSONHandler(io.Discard, nil))

func withUser(userID string) func(*gin.Context) {
	return func(c *gin.Context) {
		c.Set(middleware.SessionContextKey, session.Session{UserID: userID, Token: "t"})
	}
}

func performRequest(t *testing.T, method, route, path string, handler gin.HandlerFunc, setup func(*gin.Context), body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, route, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (io.Reader, map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(content)
	_ = w.Close()
	return &buf, map[string]string{"Content-Type": w.FormDataContentType()}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestCurrentUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentUserID(c); got != "" {
		t.Fatalf("expected empty id when not set, got %q", got)
	}
	withUser("u1")(c)
	if got := CurrentUserID(c); got != "u1" {
		t.Fatalf("expected u1, got %q", got)
	}
}

func TestSessionHandler(t *testing.T) {
	facade := testhelpers.InvoicerFacadeStub{
		BalanceFn: func(_ context.Context, userID string) (int64, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return 7, nil
		},
		StateFn: func(context.Context, string) (model.WorkflowState, *model.PaymentRequest, error) {
			return model.WorkflowAwaitingConfirmation, &model.PaymentRequest{CheckoutID: "ws_CO_9"}, nil
		},
	}
	resp := performRequest(t, http.MethodGet, "/api/session", "/api/session", NewSessionHandler(facade).Get, withUser("u1"), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	got := decode[dto.SessionResponse](t, resp)
	want := dto.SessionResponse{UserID: "u1", Credits: 7, State: "awaiting_confirmation", ActiveCheckoutID: "ws_CO_9"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	failing := testhelpers.InvoicerFacadeStub{BalanceFn: func(context.Context, string) (int64, error) { return 0, errors.New("db") }}
	resp = performRequest(t, http.MethodGet, "/api/session", "/api/session", NewSessionHandler(failing).Get, withUser("u1"), nil, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestCreditHandlerBalanceAndPackages(t *testing.T) {
	handler := NewCreditHandler(testhelpers.InvoicerFacadeStub{})

	resp := performRequest(t, http.MethodGet, "/api/credits", "/api/credits", handler.Balance, withUser("u1"), nil, nil)
	if resp.Code != http.StatusOK || decode[dto.BalanceResponse](t, resp).Balance != 5 {
		t.Fatalf("unexpected balance response %d %s", resp.Code, resp.Body.String())
	}

	resp = performRequest(t, http.MethodGet, "/api/credits/packages", "/api/credits/packages", handler.Packages, withUser("u1"), nil, nil)
	packages := decode[dto.PackagesResponse](t, resp)
	if packages.CreditPrice != 10 || len(packages.Packages) != 3 || packages.Packages[2] != (dto.PackageResponse{Amount: 500, Credits: 50}) {
		t.Fatalf("unexpected packages %+v", packages)
	}
}

func TestCreditHandlerHistory(t *testing.T) {
	var gotLimit int
	facade := testhelpers.InvoicerFacadeStub{HistoryFn: func(_ context.Context, _ string, limit int) ([]model.LedgerEntry, error) {
		gotLimit = limit
		return []model.LedgerEntry{{ID: 2, Delta: -1, Reason: model.LedgerReasonInvoiceCharge, BalanceAfter: 4, CreatedAt: time.Unix(0, 0)}}, nil
	}}
	resp := performRequest(t, http.MethodGet, "/h", "/h?limit=10", NewCreditHandler(facade).History, withUser("u1"), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotLimit != 10 {
		t.Fatalf("expected limit 10, got %d", gotLimit)
	}
	entries := decode[[]dto.LedgerEntryResponse](t, resp)
	if len(entries) != 1 || entries[0].Reason != "invoice_charge" || entries[0].BalanceAfter != 4 {
		t.Fatalf("unexpected entries %+v", entries)
	}

	resp = performRequest(t, http.MethodGet, "/h", "/h?limit=abc", NewCreditHandler(facade).History, withUser("u1"), nil, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.Code)
	}

	resp = performRequest(t, http.MethodGet, "/h", "/h", NewCreditHandler(testhelpers.InvoicerFacadeStub{}).History, withUser("u1"), nil, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for empty history, got %d", resp.Code)
	}
}

func TestPaymentHandlerPurchase(t *testing.T) {
	var got struct {
		user, phone string
		amount      int64
	}
	facade := testhelpers.InvoicerFacadeStub{PurchaseFn: func(_ context.Context, userID, phone string, amount int64) (*model.PaymentRequest, error) {
		got.user, got.phone, got.amount = userID, phone, amount
		return &model.PaymentRequest{CheckoutID: "ws_CO_1", Phone: phone, AmountRequested: amount, CreditsToGrant: 5, Status: model.PaymentStatusPending}, nil
	}}
	handler := NewPaymentHandler(facade, discard)

	resp := performRequest(t, http.MethodPost, "/api/payments", "/api/payments", handler.Purchase, withUser("u1"),
		jsonBody(t, dto.PurchaseRequest{Phone: "254712345678", Amount: 50}), jsonHeaders)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if got.user != "u1" || got.phone != "254712345678" || got.amount != 50 {
		t.Fatalf("unexpected purchase args %+v", got)
	}
	payment := decode[dto.PaymentResponse](t, resp)
	if payment.CheckoutID != "ws_CO_1" || payment.State != "awaiting_confirmation" || payment.Credits != 5 {
		t.Fatalf("unexpected payment %+v", payment)
	}
}

func TestPaymentHandlerPurchaseFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   io.Reader
		status int
	}{
		{"malformed", nil, strings.NewReader("{"), http.StatusBadRequest},
		{"validation", domainErrors.ErrValidation, nil, http.StatusUnprocessableEntity},
		{"amount", domainErrors.ErrInvalidAmount, nil, http.StatusUnprocessableEntity},
		{"in progress", domainErrors.ErrPaymentInProgress, nil, http.StatusConflict},
		{"gateway", domainErrors.ErrPaymentGateway, nil, http.StatusBadGateway},
		{"internal", errors.New("db"), nil, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.err
			facade := testhelpers.InvoicerFacadeStub{PurchaseFn: func(context.Context, string, string, int64) (*model.PaymentRequest, error) {
				return nil, err
			}}
			body := tc.body
			if body == nil {
				body = jsonBody(t, dto.PurchaseRequest{Phone: "0712", Amount: 5})
			}
			resp := performRequest(t, http.MethodPost, "/p", "/p", NewPaymentHandler(facade, discard).Purchase, withUser("u1"), body, jsonHeaders)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.Code)
			}
		})
	}
}

func TestPaymentHandlerLookups(t *testing.T) {
	notFound := testhelpers.InvoicerFacadeStub{
		ActiveFn: func(context.Context, string) (*model.PaymentRequest, error) { return nil, domainErrors.ErrNotFound },
		StatusFn: func(context.Context, string, string) (*model.PaymentRequest, error) { return nil, domainErrors.ErrNotFound },
		AbandonFn: func(context.Context, string, string) (*model.PaymentRequest, error) {
			return nil, domainErrors.ErrNotFound
		},
	}
	h := NewPaymentHandler(notFound, discard)
	if resp := performRequest(t, http.MethodGet, "/a", "/a", h.Active, withUser("u1"), nil, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 without active payment, got %d", resp.Code)
	}
	if resp := performRequest(t, http.MethodGet, "/p/:checkoutId", "/p/x", h.Status, withUser("u1"), nil, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := performRequest(t, http.MethodDelete, "/p/:checkoutId", "/p/x", h.Abandon, withUser("u1"), nil, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on abandon, got %d", resp.Code)
	}

	var gotID string
	ok := testhelpers.InvoicerFacadeStub{StatusFn: func(_ context.Context, _ string, checkoutID string) (*model.PaymentRequest, error) {
		gotID = checkoutID
		return &model.PaymentRequest{CheckoutID: checkoutID, Status: model.PaymentStatusSucceeded}, nil
	}}
	h = NewPaymentHandler(ok, discard)
	resp := performRequest(t, http.MethodGet, "/p/:checkoutId", "/p/ws_CO_7", h.Status, withUser("u1"), nil, nil)
	if resp.Code != http.StatusOK || gotID != "ws_CO_7" {
		t.Fatalf("unexpected status response %d for %q", resp.Code, gotID)
	}
	if state := decode[dto.PaymentResponse](t, resp).State; state != "succeeded" {
		t.Fatalf("expected succeeded state, got %q", state)
	}

	resp = performRequest(t, http.MethodDelete, "/p/:checkoutId", "/p/ws_CO_7", h.Abandon, withUser("u1"), nil, nil)
	if resp.Code != http.StatusOK || decode[dto.PaymentResponse](t, resp).Status != "cancelled" {
		t.Fatalf("unexpected abandon response %d %s", resp.Code, resp.Body.String())
	}
}

func TestPaymentHandlerCallback(t *testing.T) {
	var got []string
	facade := testhelpers.InvoicerFacadeStub{CallbackFn: func(_ context.Context, checkoutID, code, desc string) error {
		got = []string{checkoutID, code, desc}
		return errors.New("db down")
	}}
	h := NewPaymentHandler(facade, discard)

	body := `{"Body":{"stkCallback":{"MerchantRequestID":"m1","CheckoutRequestID":"ws_CO_1","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`
	resp := performRequest(t, http.MethodPost, "/cb", "/cb", h.Callback, nil, strings.NewReader(body), jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 even on failure, got %d", resp.Code)
	}
	if ack := decode[dto.CallbackAck](t, resp); ack.ResultCode != 0 {
		t.Fatalf("expected zero result code, got %+v", ack)
	}
	if len(got) != 3 || got[0] != "ws_CO_1" || got[1] != "1032" || got[2] != "Request cancelled by user" {
		t.Fatalf("unexpected callback args %v", got)
	}

	for _, raw := range []string{"not json", `{"Body":{"stkCallback":{}}}`} {
		got = nil
		resp = performRequest(t, http.MethodPost, "/cb", "/cb", h.Callback, nil, strings.NewReader(raw), jsonHeaders)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %q, got %d", raw, resp.Code)
		}
		if got != nil {
			t.Fatalf("expected facade not to be called for %q", raw)
		}
	}
}

func TestInvoiceHandlerSubmit(t *testing.T) {
	var gotMIME string
	facade := testhelpers.InvoicerFacadeStub{SubmitFn: func(_ context.Context, userID string, content []byte, mimeType string) (*model.Submission, error) {
		gotMIME = mimeType
		fields := model.EmptyFields()
		fields[model.FieldInvoiceNumber] = "INV-1"
		return &model.Submission{Record: model.InvoiceRecord{RawText: string(content), Fields: fields, Source: model.SourceFallback}, Balance: 3}, nil
	}}
	body, headers := multipartBody(t, "file", "invoice.pdf", "application/pdf", []byte("%PDF-1.4"))
	resp := performRequest(t, http.MethodPost, "/i", "/i", NewInvoiceHandler(facade, 1<<20).Submit, withUser("u1"), body, headers)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotMIME != "application/pdf" {
		t.Fatalf("unexpected mime type %q", gotMIME)
	}
	got := decode[dto.InvoiceResponse](t, resp)
	if got.RawText != "%PDF-1.4" || got.Source != "fallback" || got.Balance != 3 || got.Fields[model.FieldInvoiceNumber] != "INV-1" {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestInvoiceHandlerDetectsContentType(t *testing.T) {
	var gotMIME string
	facade := testhelpers.InvoicerFacadeStub{SubmitFn: func(_ context.Context, _ string, _ []byte, mimeType string) (*model.Submission, error) {
		gotMIME = mimeType
		return &model.Submission{Record: model.InvoiceRecord{Fields: model.EmptyFields()}}, nil
	}}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	body, headers := multipartBody(t, "file", "scan", "", png)
	resp := performRequest(t, http.MethodPost, "/i", "/i", NewInvoiceHandler(facade, 1<<20).Submit, withUser("u1"), body, headers)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotMIME != "image/png" {
		t.Fatalf("expected sniffed image/png, got %q", gotMIME)
	}
}

func TestInvoiceHandlerSubmitFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no credits", domainErrors.ErrInsufficientCredits, http.StatusPaymentRequired},
		{"unsupported", domainErrors.ErrUnsupportedFile, http.StatusUnsupportedMediaType},
		{"ocr", domainErrors.ErrOCRService, http.StatusBadGateway},
		{"internal", errors.New("db"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.err
			facade := testhelpers.InvoicerFacadeStub{SubmitFn: func(context.Context, string, []byte, string) (*model.Submission, error) {
				return nil, err
			}}
			body, headers := multipartBody(t, "file", "a.pdf", "application/pdf", []byte("%PDF"))
			resp := performRequest(t, http.MethodPost, "/i", "/i", NewInvoiceHandler(facade, 1<<20).Submit, withUser("u1"), body, headers)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.Code)
			}
		})
	}
}

func TestInvoiceHandlerUploadErrors(t *testing.T) {
	facade := testhelpers.InvoicerFacadeStub{SubmitFn: func(context.Context, string, []byte, string) (*model.Submission, error) {
		t.Fatal("facade should not be called")
		return nil, nil
	}}

	body, headers := multipartBody(t, "other", "a.pdf", "application/pdf", []byte("%PDF"))
	resp := performRequest(t, http.MethodPost, "/i", "/i", NewInvoiceHandler(facade, 1<<20).Submit, withUser("u1"), body, headers)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file field, got %d", resp.Code)
	}
	if msg := decode[dto.ErrorResponse](t, resp).Error; msg != "No file uploaded" {
		t.Fatalf("unexpected message %q", msg)
	}

	body, headers = multipartBody(t, "file", "a.pdf", "application/pdf", bytes.Repeat([]byte("x"), 4096))
	resp = performRequest(t, http.MethodPost, "/i", "/i", NewInvoiceHandler(facade, 1024).Submit, withUser("u1"), body, headers)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized upload, got %d", resp.Code)
	}
}

func TestInvoiceHandlerExport(t *testing.T) {
	var gotFields map[string]string
	facade := testhelpers.InvoicerFacadeStub{ExportFn: func(fields map[string]string) ([]byte, error) {
		gotFields = fields
		return []byte("PK"), nil
	}}
	body := jsonBody(t, dto.ExportRequest{Fields: map[string]string{model.FieldInvoiceNumber: "INV/7"}})
	resp := performRequest(t, http.MethodPost, "/e", "/e", NewInvoiceHandler(facade, 0).Export, withUser("u1"), body, jsonHeaders)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(gotFields) != len(model.InvoiceFields) {
		t.Fatalf("expected completed fields, got %v", gotFields)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "invoice_INV_7.xlsx") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if resp.Body.String() != "PK" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}

	resp = performRequest(t, http.MethodPost, "/e", "/e", NewInvoiceHandler(facade, 0).Export, withUser("u1"), strings.NewReader("{}"), jsonHeaders)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without fields, got %d", resp.Code)
	}
}

func TestErrorLogHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/errors", "/errors", NewErrorLogHandler(testhelpers.InvoicerFacadeStub{}).List, withUser("u1"), nil, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	facade := testhelpers.InvoicerFacadeStub{ErrorsFn: func(userID string) []model.ErrorLogEntry {
		return []model.ErrorLogEntry{{ID: "e1", UserID: userID, Message: "boom", Context: "file_processing", Severity: model.SeverityError}}
	}}
	resp = performRequest(t, http.MethodGet, "/errors", "/errors", NewErrorLogHandler(facade).List, withUser("u1"), nil, nil)
	entries := decode[[]dto.ErrorLogEntryResponse](t, resp)
	if len(entries) != 1 || entries[0].Context != "file_processing" || entries[0].Severity != "error" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(testhelpers.InvoicerFacadeStub{}, discard).Healthz, nil, nil, nil)
	if resp.Code != http.StatusOK || decode[dto.StatusResponse](t, resp).Status != "ok" {
		t.Fatalf("unexpected health response %d %s", resp.Code, resp.Body.String())
	}

	failing := testhelpers.InvoicerFacadeStub{HealthCheckFn: func(context.Context) error { return errors.New("down") }}
	resp = performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(failing, discard).Healthz, nil, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestOCRHandler(t *testing.T) {
	h := NewOCRHandler(testhelpers.RecognizerStub{Text: "INVOICE 42"}, 1<<20, discard)

	body, headers := multipartBody(t, "file", "a.png", "image/png", []byte("img"))
	resp := performRequest(t, http.MethodPost, "/api/ocr", "/api/ocr", h.Recognize, nil, body, headers)
	if resp.Code != http.StatusOK || decode[dto.OCRResponse](t, resp).Text != "INVOICE 42" {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}

	resp = performRequest(t, http.MethodPost, "/api/ocr", "/api/ocr", h.Recognize, nil, strings.NewReader(""), map[string]string{"Content-Type": "multipart/form-data; boundary=x"})
	if resp.Code != http.StatusBadRequest || decode[dto.ErrorResponse](t, resp).Error != "No file uploaded" {
		t.Fatalf("expected missing file error, got %d %s", resp.Code, resp.Body.String())
	}

	unsupported := NewOCRHandler(testhelpers.RecognizerStub{Err: domainErrors.ErrUnsupportedFile}, 1<<20, discard)
	body, headers = multipartBody(t, "file", "a.txt", "text/plain", []byte("x"))
	if resp := performRequest(t, http.MethodPost, "/api/ocr", "/api/ocr", unsupported.Recognize, nil, body, headers); resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.Code)
	}

	failing := NewOCRHandler(testhelpers.RecognizerStub{Err: domainErrors.ErrOCRService}, 1<<20, discard)
	body, headers = multipartBody(t, "file", "a.png", "image/png", []byte("x"))
	resp = performRequest(t, http.MethodPost, "/api/ocr", "/api/ocr", failing.Recognize, nil, body, headers)
	if resp.Code != http.StatusInternalServerError || decode[dto.ErrorResponse](t, resp).Error == "" {
		t.Fatalf("expected 500 with error body, got %d %s", resp.Code, resp.Body.String())
	}
}

var _ InvoicerFacade = testhelpers.InvoicerFacadeStub{}
