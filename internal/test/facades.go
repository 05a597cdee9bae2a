package test

import (
	"context"
	"sync"
	"time"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/pkg/session"
)

// InvoicerFacadeStub provides controllable behaviour for every HTTP endpoint.
type InvoicerFacadeStub struct {
	BalanceFn      func(context.Context, string) (int64, error)
	HistoryFn      func(context.Context, string, int) ([]model.LedgerEntry, error)
	PurchaseFn     func(context.Context, string, string, int64) (*model.PaymentRequest, error)
	ActiveFn       func(context.Context, string) (*model.PaymentRequest, error)
	StatusFn       func(context.Context, string, string) (*model.PaymentRequest, error)
	AbandonFn      func(context.Context, string, string) (*model.PaymentRequest, error)
	CallbackFn     func(context.Context, string, string, string) error
	StateFn        func(context.Context, string) (model.WorkflowState, *model.PaymentRequest, error)
	SubmitFn       func(context.Context, string, []byte, string) (*model.Submission, error)
	ExportFn       func(map[string]string) ([]byte, error)
	ErrorsFn       func(string) []model.ErrorLogEntry
	HealthCheckFn  func(context.Context) error
	Price          int64
	CreditPackages []model.CreditPackage
}

func (s InvoicerFacadeStub) Balance(ctx context.Context, userID string) (int64, error) {
	if s.BalanceFn != nil {
		return s.BalanceFn(ctx, userID)
	}
	return 5, nil
}

func (s InvoicerFacadeStub) CreditPrice() int64 {
	if s.Price == 0 {
		return 10
	}
	return s.Price
}

func (s InvoicerFacadeStub) Packages() []model.CreditPackage {
	if s.CreditPackages != nil {
		return s.CreditPackages
	}
	return model.CreditPackages(s.CreditPrice())
}

func (s InvoicerFacadeStub) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, userID, limit)
	}
	return nil, nil
}

func (s InvoicerFacadeStub) Purchase(ctx context.Context, userID, phone string, amount int64) (*model.PaymentRequest, error) {
	if s.PurchaseFn != nil {
		return s.PurchaseFn(ctx, userID, phone, amount)
	}
	return &model.PaymentRequest{CheckoutID: "ws_CO_1", UserID: userID, Phone: phone, AmountRequested: amount, Status: model.PaymentStatusPending}, nil
}

func (s InvoicerFacadeStub) ActivePayment(ctx context.Context, userID string) (*model.PaymentRequest, error) {
	if s.ActiveFn != nil {
		return s.ActiveFn(ctx, userID)
	}
	return &model.PaymentRequest{CheckoutID: "ws_CO_1", UserID: userID, Status: model.PaymentStatusPending}, nil
}

func (s InvoicerFacadeStub) PaymentStatus(ctx context.Context, userID, checkoutID string) (*model.PaymentRequest, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, userID, checkoutID)
	}
	return &model.PaymentRequest{CheckoutID: checkoutID, UserID: userID, Status: model.PaymentStatusPending}, nil
}

func (s InvoicerFacadeStub) AbandonPayment(ctx context.Context, userID, checkoutID string) (*model.PaymentRequest, error) {
	if s.AbandonFn != nil {
		return s.AbandonFn(ctx, userID, checkoutID)
	}
	return &model.PaymentRequest{CheckoutID: checkoutID, UserID: userID, Status: model.PaymentStatusCancelled}, nil
}

func (s InvoicerFacadeStub) PaymentCallback(ctx context.Context, checkoutID, resultCode, resultDesc string) error {
	if s.CallbackFn != nil {
		return s.CallbackFn(ctx, checkoutID, resultCode, resultDesc)
	}
	return nil
}

func (s InvoicerFacadeStub) WorkflowState(ctx context.Context, userID string) (model.WorkflowState, *model.PaymentRequest, error) {
	if s.StateFn != nil {
		return s.StateFn(ctx, userID)
	}
	return model.WorkflowIdle, nil, nil
}

func (s InvoicerFacadeStub) SubmitInvoice(ctx context.Context, userID string, content []byte, mimeType string) (*model.Submission, error) {
	if s.SubmitFn != nil {
		return s.SubmitFn(ctx, userID, content, mimeType)
	}
	return &model.Submission{
		Record:  model.InvoiceRecord{RawText: string(content), Fields: model.EmptyFields(), Source: model.SourceLLM},
		Balance: 4,
	}, nil
}

func (s InvoicerFacadeStub) ExportInvoice(fields map[string]string) ([]byte, error) {
	if s.ExportFn != nil {
		return s.ExportFn(fields)
	}
	return []byte("xlsx"), nil
}

func (s InvoicerFacadeStub) Errors(userID string) []model.ErrorLogEntry {
	if s.ErrorsFn != nil {
		return s.ErrorsFn(userID)
	}
	return nil
}

func (s InvoicerFacadeStub) HealthCheck(ctx context.Context) error {
	if s.HealthCheckFn != nil {
		return s.HealthCheckFn(ctx)
	}
	return nil
}

// SessionResolverStub resolves every token to a fixed user.
type SessionResolverStub struct {
	UserID string
	Err    error
	// Renew re-issues existing tokens as "renewed-token".
	Renew bool
}

// Resolve opens a fresh session when token is empty.
func (s SessionResolverStub) Resolve(token string) (session.Session, error) {
	if s.Err != nil {
		return session.Session{}, s.Err
	}
	userID := s.UserID
	if userID == "" {
		userID = "user-1"
	}
	if token == "" {
		return session.Session{UserID: userID, Token: "fresh-token", Fresh: true}, nil
	}
	if s.Renew {
		return session.Session{UserID: userID, Token: "renewed-token", Renewed: true}, nil
	}
	return session.Session{UserID: userID, Token: token}, nil
}

// PollRecord captures one PollPayment call.
type PollRecord struct {
	CheckoutID string
	At         time.Time
}

// WorkerFacadeStub emulates the poller facade.
type WorkerFacadeStub struct {
	sync.Mutex
	Batches [][]model.PaymentRequest
	DueErr  error
	PollFn  func(context.Context, string) (*model.PaymentRequest, error)
	Polls   []PollRecord
	Fetches int
	calls   int
}

// DuePayments returns configured batches sequentially.
func (s *WorkerFacadeStub) DuePayments(_ context.Context, limit int) ([]model.PaymentRequest, error) {
	s.Lock()
	defer s.Unlock()
	s.Fetches++
	if s.DueErr != nil {
		return nil, s.DueErr
	}
	if s.calls >= len(s.Batches) {
		return nil, nil
	}
	batch := s.Batches[s.calls]
	s.calls++
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

// PollPayment records the call and delegates to PollFn when set.
func (s *WorkerFacadeStub) PollPayment(ctx context.Context, checkoutID string) (*model.PaymentRequest, error) {
	s.Lock()
	s.Polls = append(s.Polls, PollRecord{CheckoutID: checkoutID, At: time.Now()})
	s.Unlock()
	if s.PollFn != nil {
		return s.PollFn(ctx, checkoutID)
	}
	return &model.PaymentRequest{CheckoutID: checkoutID, Status: model.PaymentStatusSucceeded}, nil
}

// PollCount returns the number of PollPayment calls so far.
func (s *WorkerFacadeStub) PollCount() int {
	s.Lock()
	defer s.Unlock()
	return len(s.Polls)
}
