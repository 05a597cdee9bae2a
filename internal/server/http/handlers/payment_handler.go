package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
)

// PaymentHandler manages credit purchases.
type PaymentHandler struct {
	facade PaymentFacade
	logger *slog.Logger
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{facade: facade, logger: logger}
}

// Purchase handles POST /api/payments.
func (h *PaymentHandler) Purchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "malformed purchase request")
		return
	}

	payment, err := h.facade.Purchase(c.Request.Context(), CurrentUserID(c), req.Phone, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrValidation):
			respondError(c, http.StatusUnprocessableEntity, "Please enter a valid M-Pesa number (254XXXXXXXXX)")
		case errors.Is(err, domainErrors.ErrInvalidAmount):
			respondError(c, http.StatusUnprocessableEntity, "amount is below the price of one credit")
		case errors.Is(err, domainErrors.ErrPaymentInProgress):
			respondError(c, http.StatusConflict, "a payment is already awaiting confirmation")
		case errors.Is(err, domainErrors.ErrPaymentGateway):
			respondError(c, http.StatusBadGateway, "payment initiation failed, please try again")
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusAccepted, toPaymentResponse(payment))
}

// Active handles GET /api/payments/active.
func (h *PaymentHandler) Active(c *gin.Context) {
	payment, err := h.facade.ActivePayment(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNoContent)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// Status handles GET /api/payments/:checkoutId.
func (h *PaymentHandler) Status(c *gin.Context) {
	payment, err := h.facade.PaymentStatus(c.Request.Context(), CurrentUserID(c), c.Param("checkoutId"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// Abandon handles DELETE /api/payments/:checkoutId.
func (h *PaymentHandler) Abandon(c *gin.Context) {
	payment, err := h.facade.AbandonPayment(c.Request.Context(), CurrentUserID(c), c.Param("checkoutId"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// Callback handles POST /api/payments/callback/:token. The gateway always gets an
// acknowledgement; failures are only logged.
func (h *PaymentHandler) Callback(c *gin.Context) {
	ack := dto.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}

	var req dto.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("malformed payment callback", slog.String("error", err.Error()))
		c.JSON(http.StatusOK, ack)
		return
	}

	cb := req.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		h.logger.Warn("payment callback without checkout id")
		c.JSON(http.StatusOK, ack)
		return
	}

	if err := h.facade.PaymentCallback(c.Request.Context(), cb.CheckoutRequestID, strconv.Itoa(cb.ResultCode), cb.ResultDesc); err != nil {
		h.logger.Error("payment callback failed",
			slog.String("checkout_id", cb.CheckoutRequestID),
			slog.String("error", err.Error()),
		)
	}
	c.JSON(http.StatusOK, ack)
}
