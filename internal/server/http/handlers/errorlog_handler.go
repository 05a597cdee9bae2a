package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
)

// ErrorLogHandler exposes the session error log.
type ErrorLogHandler struct {
	facade ErrorLogFacade
}

// NewErrorLogHandler constructs ErrorLogHandler.
func NewErrorLogHandler(facade ErrorLogFacade) *ErrorLogHandler {
	return &ErrorLogHandler{facade: facade}
}

// List handles GET /api/errors.
func (h *ErrorLogHandler) List(c *gin.Context) {
	entries := h.facade.Errors(CurrentUserID(c))
	if len(entries) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.ErrorLogEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.ErrorLogEntryResponse{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Message:   e.Message,
			Context:   e.Context,
			Severity:  string(e.Severity),
		})
	}
	c.JSON(http.StatusOK, resp)
}
