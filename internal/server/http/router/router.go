package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
	"github.com/Blu-Chips/Invoice-Extractor/internal/metrics"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/handlers"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/middleware"
)

// Params collects router dependencies.
type Params struct {
	fx.In

	Facade   handlers.InvoicerFacade
	Sessions middleware.SessionResolver
	Config   *config.Config
	Logger   *slog.Logger
}

// Setup configures gin router with handlers and middleware.
func Setup(p Params) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.MaxMultipartMemory = p.Config.MaxUploadBytes

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger.Component(p.Logger, "http")))
	engine.Use(middleware.CORS(p.Config.AllowedOrigins))
	engine.Use(middleware.DecompressRequest(p.Config.MaxUploadBytes))
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/api/invoices/export"})))

	healthHandler := handlers.NewHealthHandler(p.Facade, p.Logger)
	sessionHandler := handlers.NewSessionHandler(p.Facade)
	creditHandler := handlers.NewCreditHandler(p.Facade)
	paymentHandler := handlers.NewPaymentHandler(p.Facade, logger.Component(p.Logger, "payments"))
	invoiceHandler := handlers.NewInvoiceHandler(p.Facade, p.Config.MaxUploadBytes)
	errorLogHandler := handlers.NewErrorLogHandler(p.Facade)

	engine.GET("/healthz", healthHandler.Healthz)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := engine.Group("/api")
	api.POST("/payments/callback/:"+middleware.CallbackTokenParam,
		middleware.CallbackToken(p.Config.Payment.CallbackToken), paymentHandler.Callback)

	user := api.Group("")
	user.Use(middleware.Session(p.Sessions, p.Config.SessionTTL))
	user.GET("/session", sessionHandler.Get)
	user.GET("/credits", creditHandler.Balance)
	user.GET("/credits/packages", creditHandler.Packages)
	user.GET("/credits/history", creditHandler.History)
	user.POST("/payments", paymentHandler.Purchase)
	user.GET("/payments/active", paymentHandler.Active)
	user.GET("/payments/:checkoutId", paymentHandler.Status)
	user.DELETE("/payments/:checkoutId", paymentHandler.Abandon)
	user.POST("/invoices", invoiceHandler.Submit)
	user.POST("/invoices/export", invoiceHandler.Export)
	user.GET("/errors", errorLogHandler.List)

	return engine
}
