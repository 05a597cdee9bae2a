package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/extraction"
	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/ocr"
	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/payment"
	"github.com/Blu-Chips/Invoice-Extractor/internal/audit"
	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/repository"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewCreditUseCase,
	newPaymentUseCase,
	newExtractionUseCase,
)

type paymentParams struct {
	fx.In

	Payments repository.PaymentRepository
	Gateway  payment.Gateway
	Events   *audit.Log
	Config   *config.Config
	Logger   *slog.Logger
}

func newPaymentUseCase(p paymentParams) *PaymentUseCase {
	return NewPaymentUseCase(p.Payments, p.Gateway, p.Events, logger.Component(p.Logger, "payments"), PaymentOptionsFromConfig(p.Config))
}

type extractionParams struct {
	fx.In

	Ledger     repository.LedgerRepository
	Recognizer ocr.Recognizer
	Extractor  extraction.Extractor
	Events     *audit.Log
	Logger     *slog.Logger
}

func newExtractionUseCase(p extractionParams) *ExtractionUseCase {
	return NewExtractionUseCase(p.Ledger, p.Recognizer, p.Extractor, p.Events, logger.Component(p.Logger, "extraction"))
}
