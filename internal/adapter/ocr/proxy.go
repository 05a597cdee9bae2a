package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"time"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
)

// ProxyClient forwards documents to the OCR proxy service.
type ProxyClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type proxyResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// NewProxyClient creates a proxy client with default timeout.
func NewProxyClient(baseURL string, logger *slog.Logger) (*ProxyClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ocr proxy url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("ocr proxy url must be absolute")
	}
	return &ProxyClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Recognize uploads content as multipart field "file" to /api/ocr.
func (c *ProxyClient) Recognize(ctx context.Context, content []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="invoice"`)
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/ocr")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainErrors.ErrOCRService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainErrors.ErrOCRService, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var data proxyResponse
		if err := json.Unmarshal(body, &data); err != nil {
			return "", fmt.Errorf("%w: decode response: %v", domainErrors.ErrOCRService, err)
		}
		return data.Text, nil
	case http.StatusUnsupportedMediaType:
		return "", fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedFile, mimeType)
	default:
		c.logger.Error("ocr proxy request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return "", fmt.Errorf("%w: %s", domainErrors.ErrOCRService, resp.Status)
	}
}
