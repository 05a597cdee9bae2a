// Package extraction turns OCR text into structured invoice fields.
package extraction

import (
	"context"
	"fmt"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
)

// Extractor maps raw invoice text onto the fixed invoice field set.
type Extractor interface {
	Extract(ctx context.Context, text string) (map[string]string, error)
}

// Disabled is used when no model is configured; it always fails.
type Disabled struct{}

func (Disabled) Extract(context.Context, string) (map[string]string, error) {
	return nil, fmt.Errorf("%w: no extraction model configured", domainErrors.ErrExtractionService)
}
