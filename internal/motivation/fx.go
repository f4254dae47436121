package motivation

import "go.uber.org/fx"

var Module = fx.Module("motivation.service",
	fx.Provide(NewService),
)
