package sellerstate

import "go.uber.org/fx"

var Module = fx.Module("sellerstate.service",
	fx.Provide(NewService),
)
