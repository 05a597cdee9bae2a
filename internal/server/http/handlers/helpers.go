package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/middleware"
)

// CurrentUserID extracts the session user identifier from context.
func CurrentUserID(c *gin.Context) string {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		return ""
	}
	return sess.UserID
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: message})
}

func toPaymentResponse(p *model.PaymentRequest) dto.PaymentResponse {
	return dto.PaymentResponse{
		CheckoutID: p.CheckoutID,
		Status:     string(p.Status),
		State:      string(model.WorkflowStateFor(p.Status)),
		Phone:      p.Phone,
		Amount:     p.AmountRequested,
		Credits:    p.CreditsToGrant,
		Attempts:   p.AttemptCount,
		ResultDesc: p.ResultDesc,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
