package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/ocr"
	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
)

// OCRHandler serves the standalone text recognition endpoint.
type OCRHandler struct {
	recognizer ocr.Recognizer
	maxUpload  int64
	logger     *slog.Logger
}

// NewOCRHandler constructs OCRHandler.
func NewOCRHandler(recognizer ocr.Recognizer, maxUpload int64, logger *slog.Logger) *OCRHandler {
	return &OCRHandler{recognizer: recognizer, maxUpload: maxUpload, logger: logger}
}

// Recognize handles POST /api/ocr.
func (h *OCRHandler) Recognize(c *gin.Context) {
	content, mimeType, err := readUpload(c, h.maxUpload)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		respondError(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	text, err := h.recognizer.Recognize(c.Request.Context(), content, mimeType)
	if err != nil {
		h.logger.Error("ocr failed", slog.String("mime_type", mimeType), slog.String("error", err.Error()))
		if errors.Is(err, domainErrors.ErrUnsupportedFile) {
			respondError(c, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.OCRResponse{Text: text})
}
