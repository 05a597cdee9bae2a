package handlers

import (
	"context"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// CreditFacade describes credit queries exposed via HTTP.
type CreditFacade interface {
	Balance(ctx context.Context, userID string) (int64, error)
	CreditPrice() int64
	Packages() []model.CreditPackage
	History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error)
}

// PaymentFacade encapsulates the purchase workflow.
type PaymentFacade interface {
	Purchase(ctx context.Context, userID, phone string, amount int64) (*model.PaymentRequest, error)
	ActivePayment(ctx context.Context, userID string) (*model.PaymentRequest, error)
	PaymentStatus(ctx context.Context, userID, checkoutID string) (*model.PaymentRequest, error)
	AbandonPayment(ctx context.Context, userID, checkoutID string) (*model.PaymentRequest, error)
	PaymentCallback(ctx context.Context, checkoutID, resultCode, resultDesc string) error
	WorkflowState(ctx context.Context, userID string) (model.WorkflowState, *model.PaymentRequest, error)
}

// InvoiceFacade runs the extraction pipeline and renders exports.
type InvoiceFacade interface {
	SubmitInvoice(ctx context.Context, userID string, content []byte, mimeType string) (*model.Submission, error)
	ExportInvoice(fields map[string]string) ([]byte, error)
}

// ErrorLogFacade exposes the per-session diagnostic log.
type ErrorLogFacade interface {
	Errors(userID string) []model.ErrorLogEntry
}

// HealthFacade reports readiness of backing services.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// InvoicerFacade aggregates the full set of operations used across handlers.
type InvoicerFacade interface {
	CreditFacade
	PaymentFacade
	InvoiceFacade
	ErrorLogFacade
	HealthFacade
}
