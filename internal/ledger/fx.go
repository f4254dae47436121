package ledger

import (
	"github.com/smallbiznis/shiftledger/internal/ledger/aggregate"
	"github.com/smallbiznis/shiftledger/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(service.NewService),
	fx.Provide(aggregate.NewAggregator),
	fx.Provide(aggregate.NewService),
)
