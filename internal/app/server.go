package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const readHeaderTimeout = 10 * time.Second

func shutdown(ctx context.Context, server *http.Server, timeout time.Duration) error {
	shutdownCtx := ctx
	cancel := func() {}
	if _, ok := ctx.Deadline(); !ok {
		shutdownCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
