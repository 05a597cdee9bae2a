package test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// GatewayStub fakes a push-payment gateway.
type GatewayStub struct {
	InitiateFn func(context.Context, string, int64, string) (*model.Checkout, error)
	CheckFn    func(context.Context, string) (*model.PaymentResult, error)

	seq    atomic.Int64
	Checks atomic.Int64
}

func (g *GatewayStub) Initiate(ctx context.Context, phone string, amount int64, reference string) (*model.Checkout, error) {
	if g.InitiateFn != nil {
		return g.InitiateFn(ctx, phone, amount, reference)
	}
	return &model.Checkout{CheckoutID: fmt.Sprintf("ws_CO_%d", g.seq.Add(1))}, nil
}

func (g *GatewayStub) CheckStatus(ctx context.Context, checkoutID string) (*model.PaymentResult, error) {
	g.Checks.Add(1)
	if g.CheckFn != nil {
		return g.CheckFn(ctx, checkoutID)
	}
	return &model.PaymentResult{ResultCode: model.ResultCodePending}, nil
}

// RecognizerStub fakes OCR.
type RecognizerStub struct {
	RecognizeFn func(context.Context, []byte, string) (string, error)
	Text        string
	Err         error
}

func (r RecognizerStub) Recognize(ctx context.Context, content []byte, mimeType string) (string, error) {
	if r.RecognizeFn != nil {
		return r.RecognizeFn(ctx, content, mimeType)
	}
	return r.Text, r.Err
}

// ExtractorStub fakes structured extraction.
type ExtractorStub struct {
	ExtractFn func(context.Context, string) (map[string]string, error)
	Fields    map[string]string
	Err       error
}

func (e ExtractorStub) Extract(ctx context.Context, text string) (map[string]string, error) {
	if e.ExtractFn != nil {
		return e.ExtractFn(ctx, text)
	}
	return e.Fields, e.Err
}

// EventRecord is one call captured by EventLogRecorder.
type EventRecord struct {
	UserID   string
	Severity model.Severity
	Context  string
	Message  string
}

// EventLogRecorder captures user events in memory.
type EventLogRecorder struct {
	mu      sync.Mutex
	Records []EventRecord
}

func (r *EventLogRecorder) add(rec EventRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records = append(r.Records, rec)
}

func (r *EventLogRecorder) Info(_ context.Context, userID, logContext, message string) {
	r.add(EventRecord{UserID: userID, Severity: model.SeverityInfo, Context: logContext, Message: message})
}

func (r *EventLogRecorder) Warn(_ context.Context, userID, logContext, message string) {
	r.add(EventRecord{UserID: userID, Severity: model.SeverityWarning, Context: logContext, Message: message})
}

func (r *EventLogRecorder) Error(_ context.Context, userID, logContext string, err error) {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	r.add(EventRecord{UserID: userID, Severity: model.SeverityError, Context: logContext, Message: message})
}

// Contexts lists recorded contexts in order.
func (r *EventLogRecorder) Contexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Records))
	for _, rec := range r.Records {
		out = append(out, rec.Context)
	}
	return out
}

// Has reports whether an entry with severity and context was recorded.
func (r *EventLogRecorder) Has(severity model.Severity, logContext string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.Records {
		if rec.Severity == severity && rec.Context == logContext {
			return true
		}
	}
	return false
}
