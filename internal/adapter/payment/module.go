package payment

import (
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/Blu-Chips/Invoice-Extractor/internal/config"
	"github.com/Blu-Chips/Invoice-Extractor/internal/logger"
)

// Module exposes the configured payment gateway to fx graph.
var Module = fx.Provide(newGateway)

type gatewayParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newGateway(p gatewayParams) (Gateway, error) {
	cfg := p.Config.Payment
	switch cfg.Gateway {
	case config.GatewaySimulator:
		return NewSimulator(cfg.PendingChecks), nil
	case config.GatewayDaraja:
		d := cfg.Daraja
		client, err := NewDarajaClient(DarajaOptions{
			BaseURL:        d.BaseURL,
			ConsumerKey:    d.ConsumerKey,
			ConsumerSecret: d.ConsumerSecret,
			ShortCode:      d.ShortCode,
			Passkey:        d.Passkey,
			CallbackURL:    d.CallbackURL,
		}, logger.Component(p.Logger, "daraja"))
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.Gateway)
	}
}
