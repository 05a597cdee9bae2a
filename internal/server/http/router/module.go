package router

import (
	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/pkg/session"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/middleware"
)

// Module registers the API router for the fx runtime.
var Module = fx.Provide(
	Setup,
	func(m *session.Manager) middleware.SessionResolver { return m },
)

// ProxyModule registers the OCR proxy router.
var ProxyModule = fx.Provide(SetupProxy)
