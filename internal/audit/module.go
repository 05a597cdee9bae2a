package audit

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
)

// Module provides the per-user error log.
var Module = fx.Provide(newLog)

type logParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newLog(p logParams) *Log {
	return New(p.Config.ErrorLogSize, p.Config.ErrorLogUsers, p.Logger)
}
