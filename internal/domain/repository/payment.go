package repository

import (
	"context"
	"time"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// PaymentRepository persists checkouts and their terminal transitions.
//
// Every transition method only affects rows still in pending status and
// reports whether it did, so a checkout leaves pending at most once.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.PaymentRequest) error
	Get(ctx context.Context, checkoutID string) (*model.PaymentRequest, error)
	ActiveByUser(ctx context.Context, userID string) (*model.PaymentRequest, error)
	// ClaimDue leases up to limit pending checkouts due by dueBy, moving their
	// next poll to leaseUntil so no other claim returns them meanwhile.
	ClaimDue(ctx context.Context, dueBy, leaseUntil time.Time, limit int) ([]model.PaymentRequest, error)
	// RecordAttempt increments the attempt counter and schedules the next poll.
	RecordAttempt(ctx context.Context, checkoutID string, nextPollAt time.Time) (bool, error)
	Finish(ctx context.Context, checkoutID string, status model.PaymentStatus, desc string, attempts int) (bool, error)
	// Succeed marks the checkout succeeded and grants its credits in one transaction.
	Succeed(ctx context.Context, checkoutID string, desc string, attempts int) (int64, bool, error)
}
