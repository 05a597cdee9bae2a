package app

import (
	"context"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/export"
	"github.com/Blu-Chips/Invoice-Extractor/internal/usecase"
)

// ErrorLog lists the diagnostic entries of a user.
type ErrorLog interface {
	Entries(userID string) []model.ErrorLogEntry
}

// HealthChecker checks backing storage.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// InvoicerFacade adapts use cases to the HTTP handlers and the payment poller.
type InvoicerFacade struct {
	credits  *usecase.CreditUseCase
	payments *usecase.PaymentUseCase
	invoices *usecase.ExtractionUseCase
	errorLog ErrorLog
	health   HealthChecker
}

func NewInvoicerFacade(credits *usecase.CreditUseCase, payments *usecase.PaymentUseCase, invoices *usecase.ExtractionUseCase, errorLog ErrorLog, health HealthChecker) *InvoicerFacade {
	return &InvoicerFacade{credits: credits, payments: payments, invoices: invoices, errorLog: errorLog, health: health}
}

func (f *InvoicerFacade) Balance(ctx context.Context, userID string) (int64, error) {
	return f.credits.Balance(ctx, userID)
}

func (f *InvoicerFacade) CreditPrice() int64 {
	return f.credits.Price()
}

func (f *InvoicerFacade) Packages() []model.CreditPackage {
	return f.credits.Packages()
}

func (f *InvoicerFacade) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	return f.credits.History(ctx, userID, limit)
}

func (f *InvoicerFacade) Purchase(ctx context.Context, userID, phone string, amount int64) (*model.PaymentRequest, error) {
	return f.payments.Purchase(ctx, userID, phone, amount)
}

func (f *InvoicerFacade) ActivePayment(ctx context.Context, userID string) (*model.PaymentRequest, error) {
	return f.payments.Active(ctx, userID)
}

func (f *InvoicerFacade) PaymentStatus(ctx context.Context, userID, checkoutID string) (*model.PaymentRequest, error) {
	return f.payments.Status(ctx, userID, checkoutID)
}

func (f *InvoicerFacade) AbandonPayment(ctx context.Context, userID, checkoutID string) (*model.PaymentRequest, error) {
	return f.payments.Abandon(ctx, userID, checkoutID)
}

func (f *InvoicerFacade) PaymentCallback(ctx context.Context, checkoutID, resultCode, resultDesc string) error {
	return f.payments.Callback(ctx, checkoutID, resultCode, resultDesc)
}

func (f *InvoicerFacade) WorkflowState(ctx context.Context, userID string) (model.WorkflowState, *model.PaymentRequest, error) {
	return f.payments.State(ctx, userID)
}

func (f *InvoicerFacade) DuePayments(ctx context.Context, limit int) ([]model.PaymentRequest, error) {
	return f.payments.Due(ctx, limit)
}

func (f *InvoicerFacade) PollPayment(ctx context.Context, checkoutID string) (*model.PaymentRequest, error) {
	return f.payments.Poll(ctx, checkoutID)
}

func (f *InvoicerFacade) SubmitInvoice(ctx context.Context, userID string, content []byte, mimeType string) (*model.Submission, error) {
	return f.invoices.Submit(ctx, userID, content, mimeType)
}

func (f *InvoicerFacade) ExportInvoice(fields map[string]string) ([]byte, error) {
	return export.Workbook(fields)
}

func (f *InvoicerFacade) Errors(userID string) []model.ErrorLogEntry {
	return f.errorLog.Entries(userID)
}

func (f *InvoicerFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
