package payment

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

const simulatedSuccessDesc = "The service request is processed successfully."

// Simulator is a deterministic in-process Gateway. The n-th status check of
// a checkout reports success, earlier checks report pending.
type Simulator struct {
	successAfter int
	now          func() time.Time
	seq          atomic.Int64

	mu       sync.Mutex
	attempts map[string]int
}

// NewSimulator returns a simulator that succeeds on check number successAfter.
func NewSimulator(successAfter int) *Simulator {
	if successAfter < 1 {
		successAfter = 1
	}
	return &Simulator{
		successAfter: successAfter,
		now:          time.Now,
		attempts:     make(map[string]int),
	}
}

func (s *Simulator) Initiate(_ context.Context, _ string, _ int64, _ string) (*model.Checkout, error) {
	seq := strconv.FormatInt(s.seq.Add(1), 10)
	id := "ws_CO_" + strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + seq

	s.mu.Lock()
	s.attempts[id] = 0
	s.mu.Unlock()

	return &model.Checkout{
		CheckoutID:        id,
		MerchantRequestID: "sim-" + seq,
		CustomerMessage:   "STK Push sent successfully",
	}, nil
}

func (s *Simulator) CheckStatus(_ context.Context, checkoutID string) (*model.PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts, ok := s.attempts[checkoutID]
	if !ok {
		return nil, fmt.Errorf("simulator: checkout %s: %w", checkoutID, domainErrors.ErrNotFound)
	}
	attempts++
	if attempts >= s.successAfter {
		delete(s.attempts, checkoutID)
		return &model.PaymentResult{ResultCode: model.ResultCodeSuccess, ResultDesc: simulatedSuccessDesc}, nil
	}
	s.attempts[checkoutID] = attempts
	return &model.PaymentResult{ResultCode: model.ResultCodePending, ResultDesc: "Payment pending"}, nil
}
