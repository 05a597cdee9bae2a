package di

import (
	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/extraction"
	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/ocr"
	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/payment"
	"github.com/Blu-Chips/Invoice-Extractor/internal/app"
	"github.com/Blu-Chips/Invoice-Extractor/internal/audit"
	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
	"github.com/Blu-Chips/Invoice-Extractor/internal/pkg/session"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/router"
	"github.com/Blu-Chips/Invoice-Extractor/internal/storage"
	"github.com/Blu-Chips/Invoice-Extractor/internal/usecase"
)

// Module composes the invoicer application graph.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		session.Module,
		storage.Module,
		audit.Module,
		payment.Module,
		ocr.Module,
		extraction.Module,
		usecase.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

// ProxyModule composes the OCR proxy graph.
func ProxyModule(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.ProxyModule,
		logger.Module,
		ocr.ProxyModule,
		router.ProxyModule,
		app.ProxyModule,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
