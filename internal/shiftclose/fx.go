package shiftclose

import (
	"github.com/smallbiznis/shiftledger/internal/shiftclose/lock"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/repository"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/service"
	"go.uber.org/fx"
)

var Module = fx.Module("shiftclose.service",
	fx.Provide(repository.Provide),
	fx.Provide(lock.New),
	fx.Provide(service.New),
)
