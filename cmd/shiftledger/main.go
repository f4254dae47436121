package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/config"
	"github.com/smallbiznis/shiftledger/internal/migration"
	"github.com/smallbiznis/shiftledger/internal/observability"
	"github.com/smallbiznis/shiftledger/internal/scheduler"
	"github.com/smallbiznis/shiftledger/internal/server"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
