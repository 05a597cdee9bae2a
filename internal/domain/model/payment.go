package model

import "time"

// PaymentStatus describes checkout lifecycle.
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusTimedOut  PaymentStatus = "timed_out"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether no further automatic transition can happen.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusCancelled, PaymentStatusTimedOut, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// Gateway result codes.
const (
	ResultCodeSuccess   = "0"
	ResultCodeCancelled = "1032"
	ResultCodePending   = "pending"
)

// PaymentRequest is a single mobile-money checkout owned by one user.
type PaymentRequest struct {
	CheckoutID      string
	UserID          string
	Phone           string
	AmountRequested int64
	CreditsToGrant  int64
	AttemptCount    int
	Status          PaymentStatus
	ResultDesc      string
	NextPollAt      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Checkout is returned by the gateway when a push payment was accepted.
type Checkout struct {
	CheckoutID        string
	MerchantRequestID string
	CustomerMessage   string
}

// PaymentResult is a gateway status report for a checkout.
type PaymentResult struct {
	ResultCode string
	ResultDesc string
}

// WorkflowState is the purchase state of a user session.
type WorkflowState string

const (
	WorkflowIdle                 WorkflowState = "idle"
	WorkflowAwaitingInput        WorkflowState = "awaiting_input"
	WorkflowInitiating           WorkflowState = "initiating"
	WorkflowAwaitingConfirmation WorkflowState = "awaiting_confirmation"
	WorkflowSucceeded            WorkflowState = "succeeded"
	WorkflowCancelled            WorkflowState = "cancelled"
	WorkflowTimedOut             WorkflowState = "timed_out"
	WorkflowFailed               WorkflowState = "failed"
)

// WorkflowStateFor maps a checkout status onto the workflow state it reports.
func WorkflowStateFor(status PaymentStatus) WorkflowState {
	switch status {
	case PaymentStatusInitiated:
		return WorkflowInitiating
	case PaymentStatusPending:
		return WorkflowAwaitingConfirmation
	case PaymentStatusSucceeded:
		return WorkflowSucceeded
	case PaymentStatusCancelled:
		return WorkflowCancelled
	case PaymentStatusTimedOut:
		return WorkflowTimedOut
	case PaymentStatusFailed:
		return WorkflowFailed
	default:
		return WorkflowIdle
	}
}
