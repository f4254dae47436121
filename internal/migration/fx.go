package migration

import (
	"github.com/smallbiznis/shiftledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType != "" && cfg.DBType != "postgres" {
			log.Named("migration").Warn("skipping embedded migrations for non-postgres database",
				zap.String("db_type", cfg.DBType),
			)
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		status, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Named("migration").Info("schema ready",
			zap.Uint("version", status.Version),
			zap.Bool("applied", status.Applied),
		)
		return nil
	}),
)
