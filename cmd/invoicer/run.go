package main

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

// run starts app, waits for ctx or an fx shutdown and stops it again. It
// returns the process exit code.
func run(ctx context.Context, app *fx.App, log *slog.Logger) int {
	if err := app.Start(ctx); err != nil {
		log.Error("failed to start", slog.String("app", appName), slog.String("error", err.Error()))
		return 1
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error("failed to stop", slog.String("app", appName), slog.String("error", err.Error()))
		return 1
	}
	return 0
}
