package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
)

// CreditHandler manages credit-related endpoints.
type CreditHandler struct {
	facade CreditFacade
}

// NewCreditHandler constructs CreditHandler.
func NewCreditHandler(facade CreditFacade) *CreditHandler {
	return &CreditHandler{facade: facade}
}

// Balance handles GET /api/credits.
func (h *CreditHandler) Balance(c *gin.Context) {
	balance, err := h.facade.Balance(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{Balance: balance})
}

// Packages handles GET /api/credits/packages.
func (h *CreditHandler) Packages(c *gin.Context) {
	packages := h.facade.Packages()
	resp := dto.PackagesResponse{
		CreditPrice: h.facade.CreditPrice(),
		Packages:    make([]dto.PackageResponse, 0, len(packages)),
	}
	for _, p := range packages {
		resp.Packages = append(resp.Packages, dto.PackageResponse{Amount: p.Amount, Credits: p.Credits})
	}
	c.JSON(http.StatusOK, resp)
}

// History handles GET /api/credits/history.
func (h *CreditHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.facade.History(c.Request.Context(), CurrentUserID(c), limit)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.LedgerEntryResponse{
			ID:           e.ID,
			Delta:        e.Delta,
			Reason:       string(e.Reason),
			BalanceAfter: e.BalanceAfter,
			CreatedAt:    e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}
