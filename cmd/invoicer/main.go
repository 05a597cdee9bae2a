package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/di"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
)

const appName = "invoicer"

// newApp assembles the invoicer: HTTP API, credit ledger storage and the
// payment poller. opts override parts of the graph.
func newApp(ctx context.Context, opts ...fx.Option) *fx.App {
	return fx.New(
		fx.Provide(func() context.Context { return ctx }),
		di.Module(opts...),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := run(ctx, newApp(ctx), logger.Component(logger.New(), appName))
	stop()
	os.Exit(code)
}
