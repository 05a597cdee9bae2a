package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Blu-Chips/Invoice-Extractor/internal/audit"
	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/export"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/handlers"
	testhelpers "github.com/Blu-Chips/Invoice-Extractor/internal/test"
	"github.com/Blu-Chips/Invoice-Extractor/internal/usecase"
	"github.com/Blu-Chips/Invoice-Extractor/internal/worker"
)

var (
	_ handlers.InvoicerFacade = (*InvoicerFacade)(nil)
	_ worker.PaymentFacade    = (*InvoicerFacade)(nil)
)

type healthStub struct{ err error }

func (h healthStub) HealthCheck(context.Context) error { return h.err }

type facadeFixture struct {
	facade   *InvoicerFacade
	ledger   *testhelpers.LedgerRepositoryStub
	payments *testhelpers.PaymentRepositoryStub
	gateway  *testhelpers.GatewayStub
	log      *audit.Log
}

func newFacadeFixture(recognizer testhelpers.RecognizerStub, health error) *facadeFixture {
	cfg := &config.Config{CreditPrice: 10, Payment: config.PaymentConfig{PollInterval: time.Millisecond, MaxAttempts: 3, ClaimLease: time.Minute}}
	ledger := testhelpers.NewLedgerRepositoryStub(5)
	payments := testhelpers.NewPaymentRepositoryStub(ledger)
	gateway := &testhelpers.GatewayStub{}
	log := audit.New(50, 0, discard)

	credits := usecase.NewCreditUseCase(ledger, cfg)
	paymentUC := usecase.NewPaymentUseCase(payments, gateway, log, discard, usecase.PaymentOptionsFromConfig(cfg))
	invoices := usecase.NewExtractionUseCase(ledger, recognizer, testhelpers.ExtractorStub{Err: domainErrors.ErrExtractionService}, log, discard)

	return &facadeFixture{
		facade:   NewInvoicerFacade(credits, paymentUC, invoices, log, healthStub{err: health}),
		ledger:   ledger,
		payments: payments,
		gateway:  gateway,
		log:      log,
	}
}

func TestFacadePurchaseFlow(t *testing.T) {
	f := newFacadeFixture(testhelpers.RecognizerStub{}, nil)
	ctx := context.Background()

	payment, err := f.facade.Purchase(ctx, "u1", "254712345678", 200)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	state, active, err := f.facade.WorkflowState(ctx, "u1")
	if err != nil || state != model.WorkflowAwaitingConfirmation || active.CheckoutID != payment.CheckoutID {
		t.Fatalf("unexpected state %s %+v %v", state, active, err)
	}
	if got, err := f.facade.ActivePayment(ctx, "u1"); err != nil || got.CheckoutID != payment.CheckoutID {
		t.Fatalf("unexpected active payment %+v %v", got, err)
	}

	time.Sleep(2 * time.Millisecond)
	due, err := f.facade.DuePayments(ctx, 10)
	if err != nil || len(due) != 1 {
		t.Fatalf("expected one due payment, got %d (%v)", len(due), err)
	}
	if again, _ := f.facade.DuePayments(ctx, 10); len(again) != 0 {
		t.Fatalf("expected leased payment to be skipped, got %d", len(again))
	}

	f.gateway.CheckFn = func(context.Context, string) (*model.PaymentResult, error) {
		return &model.PaymentResult{ResultCode: model.ResultCodeSuccess, ResultDesc: "ok"}, nil
	}
	if err := f.facade.PaymentCallback(ctx, payment.CheckoutID, model.ResultCodeSuccess, "ok"); err != nil {
		t.Fatalf("callback: %v", err)
	}
	got, err := f.facade.PaymentStatus(ctx, "u1", payment.CheckoutID)
	if err != nil || got.Status != model.PaymentStatusSucceeded {
		t.Fatalf("unexpected status %+v %v", got, err)
	}
	if polled, err := f.facade.PollPayment(ctx, payment.CheckoutID); err != nil || polled.Status != model.PaymentStatusSucceeded {
		t.Fatalf("unexpected poll result %+v %v", polled, err)
	}
	if balance, _ := f.facade.Balance(ctx, "u1"); balance != 25 {
		t.Fatalf("expected 25 credits, got %d", balance)
	}

	history, err := f.facade.History(ctx, "u1", 0)
	if err != nil || len(history) != 1 || history[0].Reason != model.LedgerReasonPaymentGrant {
		t.Fatalf("unexpected history %+v %v", history, err)
	}
	entries := f.facade.Errors("u1")
	if len(entries) == 0 || entries[0].Context != "payment_success" {
		t.Fatalf("expected success event in log, got %+v", entries)
	}
}

func TestFacadeAbandonPayment(t *testing.T) {
	f := newFacadeFixture(testhelpers.RecognizerStub{}, nil)
	ctx := context.Background()
	payment, _ := f.facade.Purchase(ctx, "u1", "254712345678", 50)

	got, err := f.facade.AbandonPayment(ctx, "u1", payment.CheckoutID)
	if err != nil || got.Status != model.PaymentStatusCancelled {
		t.Fatalf("unexpected abandon result %+v %v", got, err)
	}
}

func TestFacadeCreditsCatalogue(t *testing.T) {
	f := newFacadeFixture(testhelpers.RecognizerStub{}, nil)
	if f.facade.CreditPrice() != 10 {
		t.Fatalf("expected price 10, got %d", f.facade.CreditPrice())
	}
	if len(f.facade.Packages()) != 3 {
		t.Fatalf("expected 3 packages, got %d", len(f.facade.Packages()))
	}
}

func TestFacadeSubmitAndExport(t *testing.T) {
	f := newFacadeFixture(testhelpers.RecognizerStub{Text: "Invoice #A-1\nTotal: $10.00"}, nil)
	ctx := context.Background()

	sub, err := f.facade.SubmitInvoice(ctx, "u1", []byte("%PDF"), "application/pdf")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Record.Source != model.SourceFallback || sub.Record.Fields[model.FieldInvoiceNumber] != "A-1" {
		t.Fatalf("unexpected record %+v", sub.Record)
	}

	data, err := f.facade.ExportInvoice(sub.Record.Fields)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = wb.Close() }()
	if v, _ := wb.GetCellValue(export.SheetName, "A2"); v != "A-1" {
		t.Fatalf("expected invoice number in A2, got %q", v)
	}
}

func TestFacadeHealthCheck(t *testing.T) {
	if err := newFacadeFixture(testhelpers.RecognizerStub{}, nil).facade.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("down")
	if err := newFacadeFixture(testhelpers.RecognizerStub{}, boom).facade.HealthCheck(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected health error, got %v", err)
	}
}
