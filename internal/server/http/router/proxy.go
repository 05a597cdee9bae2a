package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/adapter/ocr"
	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/dto"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/handlers"
	"github.com/Blu-Chips/Invoice-Extractor/internal/server/http/middleware"
)

// ProxyParams collects OCR proxy router dependencies.
type ProxyParams struct {
	fx.In

	Recognizer ocr.Recognizer
	Config     *config.ProxyConfig
	Logger     *slog.Logger
}

// SetupProxy configures the OCR proxy router.
func SetupProxy(p ProxyParams) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.MaxMultipartMemory = p.Config.MaxUploadBytes

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger.Component(p.Logger, "http")))
	engine.Use(middleware.CORS(p.Config.AllowedOrigins))

	ocrHandler := handlers.NewOCRHandler(p.Recognizer, p.Config.MaxUploadBytes, logger.Component(p.Logger, "ocr"))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
	})
	engine.POST("/api/ocr", ocrHandler.Recognize)

	return engine
}
