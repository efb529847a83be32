package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/config"
	"github.com/nordvolt/voltra/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		version, err := RunMigrations(sqlDB)
		if err != nil {
			return err
		}
		log.Info("schema migrations applied", zap.Uint("schema_version", version))

		if err := seed.EnsureSupplierIdentity(conn, cfg.SupplierGLN, cfg.SupplierName); err != nil {
			return err
		}
		if cfg.Hub.Simulation() {
			return seed.EnsureDefaultProduct(conn)
		}
		return nil
	}),
)
