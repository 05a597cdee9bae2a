package repository

import (
	"context"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// LedgerRepository manages per-user credit balances.
type LedgerRepository interface {
	// GetBalance returns the stored balance or the free allotment for unseen users.
	GetBalance(ctx context.Context, userID string) (int64, error)
	// Adjust atomically applies delta and fails with ErrInsufficientCredits when the balance would go negative.
	Adjust(ctx context.Context, userID string, delta int64, reason model.LedgerReason) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error)
}
