package config

import "go.uber.org/fx"

// Module exposes configuration loader for fx graphs.
var Module = fx.Provide(Load)

// ProxyModule exposes OCR proxy configuration for fx graphs.
var ProxyModule = fx.Provide(LoadProxy)
