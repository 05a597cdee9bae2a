package errors

import "errors"

var (
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("invalid phone number")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUnsupportedFile     = errors.New("unsupported file type")
	ErrOCRService          = errors.New("ocr service failure")
	ErrExtractionService   = errors.New("extraction service failure")
	ErrPaymentGateway      = errors.New("payment gateway failure")
	ErrPaymentInProgress   = errors.New("payment already in progress")
)
