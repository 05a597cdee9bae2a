package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
)

// ProxyModule wires the OCR proxy server and its lifecycle.
var ProxyModule = fx.Options(
	fx.Provide(newProxyServer),
	fx.Invoke(registerProxyLifecycle),
)

type proxyServerParams struct {
	fx.In

	Config *config.ProxyConfig
	Router *gin.Engine
}

func newProxyServer(p proxyServerParams) *http.Server {
	return &http.Server{
		Addr:              p.Config.ListenAddress,
		Handler:           p.Router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

type proxyLifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Config     *config.ProxyConfig
}

func registerProxyLifecycle(p proxyLifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Logger.Info("starting ocr proxy", slog.String("addr", p.Server.Addr))
			serve(p.Server, p.Logger, p.Shutdowner)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := shutdown(ctx, p.Server, p.Config.ShutdownTimeout); err != nil {
				return err
			}
			p.Logger.Info("ocr proxy stopped")
			return nil
		},
	})
}
