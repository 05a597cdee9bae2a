package usecase

import (
	"context"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/repository"
)

const defaultHistoryLimit = 50

// CreditUseCase exposes balance queries and the purchasable packages.
type CreditUseCase struct {
	ledger repository.LedgerRepository
	price  int64
}

// NewCreditUseCase constructs CreditUseCase.
func NewCreditUseCase(ledger repository.LedgerRepository, cfg *config.Config) *CreditUseCase {
	return &CreditUseCase{ledger: ledger, price: cfg.CreditPrice}
}

// Balance returns the credits of userID.
func (u *CreditUseCase) Balance(ctx context.Context, userID string) (int64, error) {
	return u.ledger.GetBalance(ctx, userID)
}

// Packages lists the bundles on offer.
func (u *CreditUseCase) Packages() []model.CreditPackage {
	return model.CreditPackages(u.price)
}

// Price is the amount charged per credit.
func (u *CreditUseCase) Price() int64 {
	return u.price
}

// History returns the newest ledger entries of userID.
func (u *CreditUseCase) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	entries, err := u.ledger.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	return entries, nil
}
