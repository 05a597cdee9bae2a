package payment

import (
	"context"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
)

// Gateway starts push payments and reports their status.
type Gateway interface {
	Initiate(ctx context.Context, phone string, amount int64, reference string) (*model.Checkout, error)
	CheckStatus(ctx context.Context, checkoutID string) (*model.PaymentResult, error)
}
