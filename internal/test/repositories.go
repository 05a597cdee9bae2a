package test

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// LedgerRepositoryStub keeps balances in memory and journals every movement.
type LedgerRepositoryStub struct {
	FreeCredits int64
	GetErr      error
	AdjustFn    func(context.Context, string, int64, model.LedgerReason) (int64, error)

	mu       sync.Mutex
	balances map[string]int64
	Entries  []model.LedgerEntry
}

// NewLedgerRepositoryStub creates a ledger seeding unseen users with free credits.
func NewLedgerRepositoryStub(free int64) *LedgerRepositoryStub {
	return &LedgerRepositoryStub{FreeCredits: free, balances: make(map[string]int64)}
}

// Set overrides the balance of userID.
func (s *LedgerRepositoryStub) Set(userID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()
	s.balances[userID] = balance
}

func (s *LedgerRepositoryStub) ensure() {
	if s.balances == nil {
		s.balances = make(map[string]int64)
	}
}

// GetBalance returns the stored balance or the free allotment.
func (s *LedgerRepositoryStub) GetBalance(_ context.Context, userID string) (int64, error) {
	if s.GetErr != nil {
		return 0, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.balances[userID]; ok {
		return b, nil
	}
	return s.FreeCredits, nil
}

// Adjust applies delta unless it would make the balance negative.
func (s *LedgerRepositoryStub) Adjust(ctx context.Context, userID string, delta int64, reason model.LedgerReason) (int64, error) {
	if s.AdjustFn != nil {
		return s.AdjustFn(ctx, userID, delta, reason)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()
	current, ok := s.balances[userID]
	if !ok {
		current = s.FreeCredits
	}
	next := current + delta
	if next < 0 {
		return 0, domainErrors.ErrInsufficientCredits
	}
	s.balances[userID] = next
	if delta != 0 {
		s.Entries = append(s.Entries, model.LedgerEntry{
			ID:           int64(len(s.Entries) + 1),
			UserID:       userID,
			Delta:        delta,
			Reason:       reason,
			BalanceAfter: next,
			CreatedAt:    time.Now(),
		})
	}
	return next, nil
}

// History returns the newest entries of userID first.
func (s *LedgerRepositoryStub) History(_ context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for i := len(s.Entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.Entries[i].UserID == userID {
			out = append(out, s.Entries[i])
		}
	}
	return out, nil
}

// Reasons lists the journaled reasons in commit order.
func (s *LedgerRepositoryStub) Reasons() []model.LedgerReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LedgerReason, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Reason)
	}
	return out
}

// PaymentRepositoryStub stores checkouts in memory with guarded transitions.
// Credits granted on success go to Ledger when set.
type PaymentRepositoryStub struct {
	Ledger    *LedgerRepositoryStub
	CreateErr error
	GetErr    error
	ClaimErr  error
	FinishErr error

	mu         sync.Mutex
	payments   map[string]model.PaymentRequest
	Claimed    int
	DueBy      time.Time
	LeaseUntil time.Time
}

// NewPaymentRepositoryStub creates an empty repository granting into ledger.
func NewPaymentRepositoryStub(ledger *LedgerRepositoryStub) *PaymentRepositoryStub {
	return &PaymentRepositoryStub{Ledger: ledger, payments: make(map[string]model.PaymentRequest)}
}

// Put stores p as is.
func (s *PaymentRepositoryStub) Put(p model.PaymentRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()
	s.payments[p.CheckoutID] = p
}

func (s *PaymentRepositoryStub) ensure() {
	if s.payments == nil {
		s.payments = make(map[string]model.PaymentRequest)
	}
}

func (s *PaymentRepositoryStub) Create(_ context.Context, p *model.PaymentRequest) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()
	if _, ok := s.payments[p.CheckoutID]; ok {
		return domainErrors.ErrAlreadyExists
	}
	for _, existing := range s.payments {
		if existing.UserID == p.UserID && existing.Status == model.PaymentStatusPending {
			return domainErrors.ErrAlreadyExists
		}
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.payments[p.CheckoutID] = *p
	return nil
}

func (s *PaymentRepositoryStub) Get(_ context.Context, checkoutID string) (*model.PaymentRequest, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[checkoutID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &p, nil
}

func (s *PaymentRepositoryStub) ActiveByUser(_ context.Context, userID string) (*model.PaymentRequest, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.UserID == userID && p.Status == model.PaymentStatusPending {
			return &p, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (s *PaymentRepositoryStub) ClaimDue(_ context.Context, dueBy, leaseUntil time.Time, limit int) ([]model.PaymentRequest, error) {
	if s.ClaimErr != nil {
		return nil, s.ClaimErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DueBy, s.LeaseUntil = dueBy, leaseUntil
	var due []model.PaymentRequest
	for _, p := range s.payments {
		if p.Status == model.PaymentStatusPending && !p.NextPollAt.After(dueBy) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextPollAt.Before(due[j].NextPollAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		due[i].NextPollAt = leaseUntil
		s.payments[due[i].CheckoutID] = due[i]
	}
	s.Claimed += len(due)
	return due, nil
}

func (s *PaymentRepositoryStub) RecordAttempt(_ context.Context, checkoutID string, nextPollAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[checkoutID]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.AttemptCount++
	p.NextPollAt = nextPollAt
	s.payments[checkoutID] = p
	return true, nil
}

func (s *PaymentRepositoryStub) Finish(_ context.Context, checkoutID string, status model.PaymentStatus, desc string, attempts int) (bool, error) {
	if s.FinishErr != nil {
		return false, s.FinishErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[checkoutID]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.ResultDesc = desc
	p.AttemptCount = attempts
	s.payments[checkoutID] = p
	return true, nil
}

func (s *PaymentRepositoryStub) Succeed(ctx context.Context, checkoutID string, desc string, attempts int) (int64, bool, error) {
	s.mu.Lock()
	p, ok := s.payments[checkoutID]
	if !ok || p.Status != model.PaymentStatusPending {
		s.mu.Unlock()
		return 0, false, nil
	}
	p.Status = model.PaymentStatusSucceeded
	p.ResultDesc = desc
	p.AttemptCount = attempts
	s.payments[checkoutID] = p
	s.mu.Unlock()

	if s.Ledger == nil {
		return 0, true, nil
	}
	balance, err := s.Ledger.Adjust(ctx, p.UserID, p.CreditsToGrant, model.LedgerReasonPaymentGrant)
	if err != nil {
		return 0, false, err
	}
	return balance, true, nil
}
