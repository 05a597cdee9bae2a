// Package storage selects a persistence backend from the configured DSN.
package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/repository"
	"github.com/Blu-Chips/Invoice-Extractor/internal/storage/postgres"
	"github.com/Blu-Chips/Invoice-Extractor/internal/storage/sqlite"
)

// Backend is the persistence surface shared by all storage engines.
type Backend interface {
	repository.Factory
	HealthCheck(ctx context.Context) error
	Close()
}

// Module wires the storage backend and repository adapters.
var Module = fx.Options(
	fx.Provide(newBackend),
	fx.Provide(
		func(b Backend) repository.LedgerRepository { return b.Ledger() },
		func(b Backend) repository.PaymentRepository { return b.Payments() },
	),
	fx.Invoke(registerLifecycle),
)

type backendParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// Open connects to the backend a DSN selects.
func Open(ctx context.Context, dsn string, freeCredits int64, logger *slog.Logger) (Backend, error) {
	if sqlite.Matches(dsn) {
		st, err := sqlite.New(ctx, dsn, freeCredits, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	st, err := postgres.New(ctx, dsn, freeCredits, logger)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func newBackend(p backendParams) (Backend, error) {
	backend, err := Open(p.Ctx, p.Config.DatabaseURI, p.Config.FreeCredits, p.Logger)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("storage opened", slog.Bool("embedded", sqlite.Matches(p.Config.DatabaseURI)))
	return backend, nil
}

func registerLifecycle(lc fx.Lifecycle, backend Backend) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			backend.Close()
			return nil
		},
	})
}
