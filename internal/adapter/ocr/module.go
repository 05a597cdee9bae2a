package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"
	"google.golang.org/api/option"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
)

// Module exposes the configured recognizer to the invoicer graph.
var Module = fx.Provide(newRecognizer)

// ProxyModule exposes the Vision recognizer behind the OCR proxy.
var ProxyModule = fx.Provide(newProxyRecognizer)

type recognizerParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

type proxyRecognizerParams struct {
	fx.In

	Ctx    context.Context
	Config *config.ProxyConfig
	Logger *slog.Logger
}

// New builds the Recognizer an OCR configuration selects.
func New(ctx context.Context, cfg config.OCRConfig, l *slog.Logger) (Recognizer, error) {
	switch cfg.Backend {
	case config.OCRBackendProxy:
		client, err := NewProxyClient(cfg.ProxyAddress, logger.Component(l, "ocr_proxy"))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.OCRBackendVision:
		var opts []option.ClientOption
		if cfg.VisionAPIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.VisionAPIKey))
		}
		if cfg.VisionEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.VisionEndpoint))
		}
		client, err := NewVisionClient(ctx, logger.Component(l, "vision"), opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ocr backend %q", cfg.Backend)
	}
}

func newRecognizer(p recognizerParams) (Recognizer, error) {
	return New(p.Ctx, p.Config.OCR, p.Logger)
}

func newProxyRecognizer(p proxyRecognizerParams) (Recognizer, error) {
	return New(p.Ctx, p.Config.OCR, p.Logger)
}
