package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/extraction"
	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/ocr"
	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/repository"
	"github.com/Blu-Chips/Invoice-Extractor/internal/metrics"
)

// ExtractionUseCase charges a credit and turns a document into invoice fields.
type ExtractionUseCase struct {
	ledger     repository.LedgerRepository
	recognizer ocr.Recognizer
	extractor  extraction.Extractor
	events     EventLog
	logger     *slog.Logger
}

// NewExtractionUseCase constructs ExtractionUseCase.
func NewExtractionUseCase(ledger repository.LedgerRepository, recognizer ocr.Recognizer, extractor extraction.Extractor, events EventLog, logger *slog.Logger) *ExtractionUseCase {
	return &ExtractionUseCase{
		ledger:     ledger,
		recognizer: recognizer,
		extractor:  extractor,
		events:     events,
		logger:     logger,
	}
}

// Submit processes content for userID. A credit is spent unless OCR fails.
func (u *ExtractionUseCase) Submit(ctx context.Context, userID string, content []byte, mimeType string) (*model.Submission, error) {
	balance, err := u.ledger.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance <= 0 {
		metrics.InvoicesProcessed.WithLabelValues("no_credits").Inc()
		return nil, domainErrors.ErrInsufficientCredits
	}

	balance, err = u.ledger.Adjust(ctx, userID, -1, model.LedgerReasonInvoiceCharge)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInsufficientCredits) {
			metrics.InvoicesProcessed.WithLabelValues("no_credits").Inc()
		}
		return nil, err
	}
	metrics.CreditMovements.WithLabelValues(string(model.LedgerReasonInvoiceCharge)).Inc()

	text, err := u.recognize(ctx, content, mimeType)
	if err != nil {
		u.events.Error(ctx, userID, "file_processing", err)
		if _, refundErr := u.ledger.Adjust(ctx, userID, 1, model.LedgerReasonOCRRefund); refundErr != nil {
			u.logger.Error("credit refund failed", slog.String("user_id", userID), slog.Any("error", refundErr))
		} else {
			metrics.CreditMovements.WithLabelValues(string(model.LedgerReasonOCRRefund)).Inc()
		}
		metrics.InvoicesProcessed.WithLabelValues("ocr_failed").Inc()
		if errors.Is(err, domainErrors.ErrUnsupportedFile) {
			return nil, err
		}
		if !errors.Is(err, domainErrors.ErrOCRService) {
			err = fmt.Errorf("%w: %v", domainErrors.ErrOCRService, err)
		}
		return nil, err
	}

	record := model.InvoiceRecord{RawText: text, Source: model.SourceLLM}
	fields, err := u.extractor.Extract(ctx, text)
	if err != nil {
		u.events.Warn(ctx, userID, "data_extraction", err.Error())
		fields = FallbackExtract(text)
		record.Source = model.SourceFallback
	}
	record.Fields = model.CompleteFields(fields)

	metrics.InvoicesProcessed.WithLabelValues(string(record.Source)).Inc()
	return &model.Submission{Record: record, Balance: balance}, nil
}

func (u *ExtractionUseCase) recognize(ctx context.Context, content []byte, mimeType string) (string, error) {
	if !ocr.Supported(mimeType) {
		return "", fmt.Errorf("%w: please upload PDF or image files, got %q", domainErrors.ErrUnsupportedFile, mimeType)
	}
	return u.recognizer.Recognize(ctx, content, mimeType)
}
