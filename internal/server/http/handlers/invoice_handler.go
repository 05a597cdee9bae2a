package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/export"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
)

const uploadField = "file"

var errUploadTooLarge = errors.New("upload too large")

// InvoiceHandler accepts documents for extraction and exports results.
type InvoiceHandler struct {
	facade    InvoiceFacade
	maxUpload int64
}

// NewInvoiceHandler constructs InvoiceHandler limiting uploads to maxUpload bytes.
func NewInvoiceHandler(facade InvoiceFacade, maxUpload int64) *InvoiceHandler {
	return &InvoiceHandler{facade: facade, maxUpload: maxUpload}
}

// Submit handles POST /api/invoices.
func (h *InvoiceHandler) Submit(c *gin.Context) {
	content, mimeType, err := readUpload(c, h.maxUpload)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxUpload))
			return
		}
		respondError(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	sub, err := h.facade.SubmitInvoice(c.Request.Context(), CurrentUserID(c), content, mimeType)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInsufficientCredits):
			respondError(c, http.StatusPaymentRequired, "Insufficient credits. Please purchase more credits to continue.")
		case errors.Is(err, domainErrors.ErrUnsupportedFile):
			respondError(c, http.StatusUnsupportedMediaType, "Unsupported file type. Please upload PDF or image files.")
		case errors.Is(err, domainErrors.ErrOCRService):
			respondError(c, http.StatusBadGateway, "Text recognition failed, your credit was refunded.")
		default:
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, dto.InvoiceResponse{
		RawText: sub.Record.RawText,
		Fields:  sub.Record.Fields,
		Source:  string(sub.Record.Source),
		Balance: sub.Balance,
	})
}

// Export handles POST /api/invoices/export.
func (h *InvoiceHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "fields are required")
		return
	}

	fields := model.CompleteFields(req.Fields)
	data, err := h.facade.ExportInvoice(fields)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": export.FileName(fields[model.FieldInvoiceNumber]),
	}))
	c.Data(http.StatusOK, export.ContentType, data)
}

// readUpload returns the bytes and media type of the multipart file field.
func readUpload(c *gin.Context, maxUpload int64) ([]byte, string, error) {
	if maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
	}

	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", errUploadTooLarge
		}
		return nil, "", err
	}
	if maxUpload > 0 && header.Size > maxUpload {
		return nil, "", errUploadTooLarge
	}

	content, err := readFile(header)
	if err != nil {
		return nil, "", err
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(content)
	}
	return content, mimeType, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
