package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
)

// SessionFacade combines what the session summary needs.
type SessionFacade interface {
	Balance(ctx context.Context, userID string) (int64, error)
	WorkflowState(ctx context.Context, userID string) (model.WorkflowState, *model.PaymentRequest, error)
}

// SessionHandler reports the caller's session.
type SessionHandler struct {
	facade SessionFacade
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(facade SessionFacade) *SessionHandler {
	return &SessionHandler{facade: facade}
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(c *gin.Context) {
	userID := CurrentUserID(c)
	ctx := c.Request.Context()

	balance, err := h.facade.Balance(ctx, userID)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	state, active, err := h.facade.WorkflowState(ctx, userID)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	resp := dto.SessionResponse{UserID: userID, Credits: balance, State: string(state)}
	if active != nil {
		resp.ActiveCheckoutID = active.CheckoutID
	}
	c.JSON(http.StatusOK, resp)
}
