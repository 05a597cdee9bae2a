package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/middleware"
	testhelpers "github.com/Blu-Chips/Invoice-Extractor/internal/test"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
		AllowedOrigins: []string{"*"},
		Payment:        config.PaymentConfig{CallbackToken: "s3cr3t"},
	}
}

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	engine := Setup(Params{
		Facade:   testhelpers.InvoicerFacadeStub{},
		Sessions: testhelpers.SessionResolverStub{UserID: "u1"},
		Config:   testConfig(),
		Logger:   logger,
	})

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for session, got %d", resp.Code)
	}
	var sess dto.SessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &sess); err != nil || sess.UserID != "u1" || sess.State != "idle" {
		t.Fatalf("unexpected session %+v (%v)", sess, err)
	}
	if !strings.Contains(resp.Header().Get("Set-Cookie"), middleware.SessionCookieName) {
		t.Fatal("expected a session cookie for a new visitor")
	}

	routes := []struct {
		method, path string
		body         string
		status       int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/credits", "", http.StatusOK},
		{http.MethodGet, "/api/credits/packages", "", http.StatusOK},
		{http.MethodGet, "/api/credits/history", "", http.StatusNoContent},
		{http.MethodPost, "/api/payments", `{"phone":"254712345678","amount":50}`, http.StatusAccepted},
		{http.MethodGet, "/api/payments/active", "", http.StatusOK},
		{http.MethodGet, "/api/payments/ws_CO_1", "", http.StatusOK},
		{http.MethodDelete, "/api/payments/ws_CO_1", "", http.StatusOK},
		{http.MethodPost, "/api/payments/callback/s3cr3t", `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0}}}`, http.StatusOK},
		{http.MethodPost, "/api/invoices/export", `{"fields":{"Invoice Number":"1"}}`, http.StatusOK},
		{http.MethodGet, "/api/errors", "", http.StatusNoContent},
	}
	for _, rt := range routes {
		var body io.Reader
		if rt.body != "" {
			body = strings.NewReader(rt.body)
		}
		req := httptest.NewRequest(rt.method, rt.path, body)
		req.Header.Set("Authorization", "Bearer token")
		if rt.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp := httptest.NewRecorder()
		engine.ServeHTTP(resp, req)
		if resp.Code != rt.status {
			t.Fatalf("%s %s: expected %d, got %d", rt.method, rt.path, rt.status, resp.Code)
		}
	}
}

func TestSetupRejectsCallbackWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var calls int
	engine := Setup(Params{
		Facade: testhelpers.InvoicerFacadeStub{CallbackFn: func(context.Context, string, string, string) error {
			calls++
			return nil
		}},
		Sessions: testhelpers.SessionResolverStub{},
		Config:   testConfig(),
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})

	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0}}}`
	for _, path := range []string{"/api/payments/callback", "/api/payments/callback/guess"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		engine.ServeHTTP(resp, req)
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.Code)
		}
	}
	if calls != 0 {
		t.Fatalf("expected forged callbacks not to reach the facade, got %d", calls)
	}
}

func TestSetupInvoiceUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := Setup(Params{
		Facade:   testhelpers.InvoicerFacadeStub{},
		Sessions: testhelpers.SessionResolverStub{},
		Config:   testConfig(),
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "invoice.pdf")
	_, _ = part.Write([]byte("%PDF-1.4 hello"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/invoices", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSetupProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := SetupProxy(ProxyParams{
		Recognizer: testhelpers.RecognizerStub{Text: "hello"},
		Config:     &config.ProxyConfig{MaxUploadBytes: 1 << 20, AllowedOrigins: []string{"*"}},
		Logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "scan.png")
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/ocr", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Origin", "http://localhost:3000")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out dto.OCRResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil || out.Text != "hello" {
		t.Fatalf("unexpected body %s (%v)", resp.Body.String(), err)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS headers on proxy responses")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/ocr", nil)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "No file uploaded") {
		t.Fatalf("expected missing file error, got %d %s", resp.Code, resp.Body.String())
	}
}
