package logger

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Module wires slog logger for dependency injection and routes fx events through it.
var Module = fx.Options(
	fx.Provide(New),
	fx.WithLogger(newEventLogger),
)

func newEventLogger(l *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: Component(l, "fx")}
}
