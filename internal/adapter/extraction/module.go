package extraction

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
)

// Module exposes the structured extractor to fx graph.
var Module = fx.Provide(newExtractor)

type extractorParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newExtractor(p extractorParams) (Extractor, error) {
	cfg := p.Config.LLM
	if cfg.APIKey == "" {
		p.Logger.Warn("llm api key not configured, using pattern extraction only")
		return Disabled{}, nil
	}
	client, err := NewLLMClient(cfg.BaseURL, cfg.APIKey, cfg.Model, logger.Component(p.Logger, "llm"))
	if err != nil {
		return nil, err
	}
	return client, nil
}
