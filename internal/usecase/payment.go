package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/payment"
	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/repository"
	"github.com/Blu-Chips/Invoice-Extractor/internal/metrics"
)

const accountReferencePrefix = "INV_CREDITS_"

const (
	descAbandoned = "abandoned"
	descCancelled = "Payment was cancelled by user"
	descTimedOut  = "Payment confirmation timeout"
)

const defaultClaimLease = time.Minute

// PaymentOptions tunes the purchase workflow.
type PaymentOptions struct {
	CreditPrice  int64
	PollInterval time.Duration
	MaxAttempts  int
	// ClaimLease hides a claimed checkout from other claims while its check
	// is in flight. It must outlast a gateway status call.
	ClaimLease time.Duration
}

// PaymentUseCase drives a push payment from initiation to a terminal status.
type PaymentUseCase struct {
	payments repository.PaymentRepository
	gateway  payment.Gateway
	events   EventLog
	logger   *slog.Logger
	opts     PaymentOptions
	now      func() time.Time
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(payments repository.PaymentRepository, gateway payment.Gateway, events EventLog, logger *slog.Logger, opts PaymentOptions) *PaymentUseCase {
	return &PaymentUseCase{
		payments: payments,
		gateway:  gateway,
		events:   events,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// PaymentOptionsFromConfig maps configuration onto PaymentOptions.
func PaymentOptionsFromConfig(cfg *config.Config) PaymentOptions {
	return PaymentOptions{
		CreditPrice:  cfg.CreditPrice,
		PollInterval: cfg.Payment.PollInterval,
		MaxAttempts:  cfg.Payment.MaxAttempts,
		ClaimLease:   cfg.Payment.ClaimLease,
	}
}

// Purchase validates input and sends a push prompt to phone.
func (u *PaymentUseCase) Purchase(ctx context.Context, userID, phone string, amount int64) (*model.PaymentRequest, error) {
	phone = strings.TrimSpace(phone)
	if !ValidatePhone(phone) {
		u.events.Warn(ctx, userID, "payment_initiation", "Please enter a valid M-Pesa number (254XXXXXXXXX)")
		return nil, domainErrors.ErrValidation
	}
	if amount < u.opts.CreditPrice {
		return nil, domainErrors.ErrInvalidAmount
	}

	if _, err := u.payments.ActiveByUser(ctx, userID); err == nil {
		return nil, domainErrors.ErrPaymentInProgress
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	checkout, err := u.gateway.Initiate(ctx, phone, amount, accountReferencePrefix+userID)
	if err != nil {
		u.events.Error(ctx, userID, "payment_initiation", err)
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrPaymentGateway, err)
	}

	request := &model.PaymentRequest{
		CheckoutID:      checkout.CheckoutID,
		UserID:          userID,
		Phone:           phone,
		AmountRequested: amount,
		CreditsToGrant:  model.CreditsFor(amount, u.opts.CreditPrice),
		Status:          model.PaymentStatusPending,
		ResultDesc:      checkout.CustomerMessage,
		NextPollAt:      u.now().Add(u.opts.PollInterval),
	}
	if err := u.payments.Create(ctx, request); err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyExists) {
			return nil, domainErrors.ErrPaymentInProgress
		}
		return nil, err
	}

	metrics.PaymentsInitiated.Inc()
	u.logger.Info("payment initiated",
		slog.String("checkout_id", request.CheckoutID),
		slog.String("user_id", userID),
		slog.Int64("amount", amount),
	)
	return request, nil
}

// Poll checks the gateway once for checkoutID and applies the outcome.
func (u *PaymentUseCase) Poll(ctx context.Context, checkoutID string) (*model.PaymentRequest, error) {
	request, err := u.payments.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		return request, nil
	}

	attempts := request.AttemptCount + 1
	metrics.PaymentPolls.Inc()

	started := u.now()
	result, err := u.gateway.CheckStatus(ctx, checkoutID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		u.events.Error(ctx, request.UserID, "payment_poll", err)
		return u.finish(ctx, request, model.PaymentStatusFailed, err.Error(), attempts)
	}

	switch result.ResultCode {
	case model.ResultCodeSuccess:
		return u.succeed(ctx, request, result.ResultDesc, attempts)
	case model.ResultCodeCancelled:
		return u.cancel(ctx, request, result.ResultDesc, attempts)
	}

	if attempts >= u.opts.MaxAttempts {
		applied, err := u.payments.Finish(ctx, checkoutID, model.PaymentStatusTimedOut, descTimedOut, attempts)
		if err != nil {
			return nil, err
		}
		if applied {
			metrics.PaymentsCompleted.WithLabelValues(string(model.PaymentStatusTimedOut)).Inc()
			u.events.Warn(ctx, request.UserID, "payment_timeout", descTimedOut)
		}
		return u.payments.Get(ctx, checkoutID)
	}

	if _, err := u.payments.RecordAttempt(ctx, checkoutID, started.Add(u.opts.PollInterval)); err != nil {
		return nil, err
	}
	return u.payments.Get(ctx, checkoutID)
}

// Callback treats a gateway notification as a hint: the outcome is read back
// from the gateway before it is applied. Unknown checkouts are ignored.
func (u *PaymentUseCase) Callback(ctx context.Context, checkoutID, resultCode, resultDesc string) error {
	request, err := u.payments.Get(ctx, checkoutID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("callback for unknown checkout", slog.String("checkout_id", checkoutID))
			return nil
		}
		return err
	}
	if request.Status.Terminal() {
		return nil
	}

	if resultCode != model.ResultCodeSuccess && resultCode != model.ResultCodeCancelled {
		u.logger.Info("callback left checkout pending",
			slog.String("checkout_id", checkoutID),
			slog.String("result_code", resultCode),
			slog.String("result_desc", resultDesc),
		)
		return nil
	}

	result, err := u.gateway.CheckStatus(ctx, checkoutID)
	if err != nil {
		return fmt.Errorf("%w: verify callback: %v", domainErrors.ErrPaymentGateway, err)
	}

	switch result.ResultCode {
	case model.ResultCodeSuccess:
		_, err = u.succeed(ctx, request, result.ResultDesc, request.AttemptCount)
	case model.ResultCodeCancelled:
		_, err = u.cancel(ctx, request, result.ResultDesc, request.AttemptCount)
	default:
		u.logger.Warn("callback not confirmed by gateway",
			slog.String("checkout_id", checkoutID),
			slog.String("claimed_code", resultCode),
			slog.String("result_code", result.ResultCode),
		)
	}
	return err
}

// Abandon cancels the pending checkout of userID on request of the client.
func (u *PaymentUseCase) Abandon(ctx context.Context, userID, checkoutID string) (*model.PaymentRequest, error) {
	request, err := u.Status(ctx, userID, checkoutID)
	if err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		return request, nil
	}
	return u.finish(ctx, request, model.PaymentStatusCancelled, descAbandoned, request.AttemptCount)
}

// Status returns checkoutID when it belongs to userID.
func (u *PaymentUseCase) Status(ctx context.Context, userID, checkoutID string) (*model.PaymentRequest, error) {
	request, err := u.payments.Get(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if request.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	return request, nil
}

// Due leases up to limit pending checkouts whose next check falls within half
// a poll interval from now.
func (u *PaymentUseCase) Due(ctx context.Context, limit int) ([]model.PaymentRequest, error) {
	lease := u.opts.ClaimLease
	if lease <= 0 {
		lease = defaultClaimLease
	}
	now := u.now()
	return u.payments.ClaimDue(ctx, now.Add(u.opts.PollInterval/2), now.Add(lease), limit)
}

// Active returns the pending checkout of userID, if any.
func (u *PaymentUseCase) Active(ctx context.Context, userID string) (*model.PaymentRequest, error) {
	return u.payments.ActiveByUser(ctx, userID)
}

// State reports the workflow state of userID along with its pending checkout.
func (u *PaymentUseCase) State(ctx context.Context, userID string) (model.WorkflowState, *model.PaymentRequest, error) {
	request, err := u.payments.ActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return model.WorkflowIdle, nil, nil
		}
		return "", nil, err
	}
	return model.WorkflowStateFor(request.Status), request, nil
}

func (u *PaymentUseCase) succeed(ctx context.Context, request *model.PaymentRequest, desc string, attempts int) (*model.PaymentRequest, error) {
	balance, applied, err := u.payments.Succeed(ctx, request.CheckoutID, desc, attempts)
	if err != nil {
		return nil, err
	}
	if applied {
		metrics.PaymentsCompleted.WithLabelValues(string(model.PaymentStatusSucceeded)).Inc()
		metrics.CreditsGranted.Add(float64(request.CreditsToGrant))
		u.events.Info(ctx, request.UserID, "payment_success",
			fmt.Sprintf("Payment successful: %d KES, %d credits added", request.AmountRequested, request.CreditsToGrant))
		u.logger.Info("payment succeeded",
			slog.String("checkout_id", request.CheckoutID),
			slog.Int64("balance", balance),
		)
	}
	return u.payments.Get(ctx, request.CheckoutID)
}

func (u *PaymentUseCase) cancel(ctx context.Context, request *model.PaymentRequest, desc string, attempts int) (*model.PaymentRequest, error) {
	if desc == "" {
		desc = descCancelled
	}
	applied, err := u.payments.Finish(ctx, request.CheckoutID, model.PaymentStatusCancelled, desc, attempts)
	if err != nil {
		return nil, err
	}
	if applied {
		metrics.PaymentsCompleted.WithLabelValues(string(model.PaymentStatusCancelled)).Inc()
		u.events.Error(ctx, request.UserID, "payment_cancelled", errors.New(descCancelled))
	}
	return u.payments.Get(ctx, request.CheckoutID)
}

func (u *PaymentUseCase) finish(ctx context.Context, request *model.PaymentRequest, status model.PaymentStatus, desc string, attempts int) (*model.PaymentRequest, error) {
	applied, err := u.payments.Finish(ctx, request.CheckoutID, status, desc, attempts)
	if err != nil {
		return nil, err
	}
	if applied {
		metrics.PaymentsCompleted.WithLabelValues(string(status)).Inc()
	}
	return u.payments.Get(ctx, request.CheckoutID)
}
