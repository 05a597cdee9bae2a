package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/audit"
	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/handlers"
	"github.com/Blu-Chips/Invoice-Extractor/internal/storage"
	"github.com/Blu-Chips/Invoice-Extractor/internal/usecase"
	"github.com/Blu-Chips/Invoice-Extractor/internal/worker"
)

// Module wires the invoicer services, runtime components and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(newInvoicerFacade, fx.As(fx.Self()), fx.As(new(handlers.InvoicerFacade))),
		newHTTPServer,
		newPaymentPoller,
	),
	fx.Invoke(registerLifecycle),
)

type facadeParams struct {
	fx.In

	Credits  *usecase.CreditUseCase
	Payments *usecase.PaymentUseCase
	Invoices *usecase.ExtractionUseCase
	ErrorLog *audit.Log
	Storage  storage.Backend
}

func newInvoicerFacade(p facadeParams) *InvoicerFacade {
	return NewInvoicerFacade(p.Credits, p.Payments, p.Invoices, p.ErrorLog, p.Storage)
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:              p.Config.RunAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

type workerParams struct {
	fx.In

	Facade *InvoicerFacade
	Config *config.Config
	Logger *slog.Logger
}

func newPaymentPoller(p workerParams) *worker.PaymentPoller {
	return worker.NewPaymentPoller(
		p.Facade,
		p.Config.Payment.PollInterval,
		p.Config.Payment.PollBatchSize,
		p.Config.Payment.WorkerPoolSize,
		logger.Component(p.Logger, "poller"),
	)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Worker     *worker.PaymentPoller
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting invoicer",
				slog.String("addr", p.Server.Addr),
				slog.String("gateway", p.Config.Payment.Gateway),
				slog.String("ocr", p.Config.OCR.Backend),
			)
			// The start context ends once startup completes; polling must outlive it.
			p.Worker.Start(context.WithoutCancel(ctx))
			serve(p.Server, p.Logger, p.Shutdowner)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Worker.Stop()
			if err := shutdown(ctx, p.Server, p.Config.ShutdownTimeout); err != nil {
				return err
			}
			p.Logger.Info("invoicer stopped")
			return nil
		},
	})
}

func serve(server *http.Server, l *slog.Logger, shutdowner fx.Shutdowner) {
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server terminated", slog.String("error", err.Error()))
			_ = shutdowner.Shutdown()
		}
	}()
}
