package settings

import "go.uber.org/fx"

var Module = fx.Module("settings.service",
	fx.Provide(NewService),
)
