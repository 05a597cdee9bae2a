package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
)

const (
	featureText     = "TEXT_DETECTION"
	featureDocument = "DOCUMENT_TEXT_DETECTION"
)

// VisionClient recognizes text with the Google Cloud Vision REST API.
type VisionClient struct {
	service *vision.Service
	logger  *slog.Logger
}

// NewVisionClient builds a client from client options such as option.WithAPIKey.
func NewVisionClient(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*VisionClient, error) {
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return &VisionClient{service: svc, logger: logger}, nil
}

// Recognize returns the detected text, or an empty string when the document has none.
func (c *VisionClient) Recognize(ctx context.Context, content []byte, mimeType string) (string, error) {
	mimeType = normalizeMIME(mimeType)
	switch {
	case mimeType == mimePDF:
		return c.recognizeDocument(ctx, content, mimeType)
	case strings.HasPrefix(mimeType, "image/"):
		return c.recognizeImage(ctx, content)
	default:
		return "", fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedFile, mimeType)
	}
}

func (c *VisionClient) recognizeImage(ctx context.Context, content []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(content)},
			Features: []*vision.Feature{{Type: featureText}},
		}},
	}
	resp, err := c.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		c.logger.Error("vision image annotate failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", domainErrors.ErrOCRService, err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	return imageText(resp.Responses[0])
}

func (c *VisionClient) recognizeDocument(ctx context.Context, content []byte, mimeType string) (string, error) {
	req := &vision.BatchAnnotateFilesRequest{
		Requests: []*vision.AnnotateFileRequest{{
			InputConfig: &vision.InputConfig{
				Content:  base64.StdEncoding.EncodeToString(content),
				MimeType: mimeType,
			},
			Features: []*vision.Feature{{Type: featureDocument}},
		}},
	}
	resp, err := c.service.Files.Annotate(req).Context(ctx).Do()
	if err != nil {
		c.logger.Error("vision file annotate failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", domainErrors.ErrOCRService, err)
	}

	var pages []string
	for _, file := range resp.Responses {
		if file.Error != nil && file.Error.Code != 0 {
			return "", fmt.Errorf("%w: %s", domainErrors.ErrOCRService, file.Error.Message)
		}
		for _, page := range file.Responses {
			text, err := imageText(page)
			if err != nil {
				return "", err
			}
			if text != "" {
				pages = append(pages, text)
			}
		}
	}
	return strings.Join(pages, "\n"), nil
}

func imageText(resp *vision.AnnotateImageResponse) (string, error) {
	if resp.Error != nil && resp.Error.Code != 0 {
		return "", fmt.Errorf("%w: %s", domainErrors.ErrOCRService, resp.Error.Message)
	}
	if resp.FullTextAnnotation != nil && resp.FullTextAnnotation.Text != "" {
		return resp.FullTextAnnotation.Text, nil
	}
	if len(resp.TextAnnotations) > 0 {
		return resp.TextAnnotations[0].Description, nil
	}
	return "", nil
}
