package payoutroll

import "go.uber.org/fx"

var Module = fx.Module("payoutroll.service",
	fx.Provide(NewService),
)
