package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	"github.com/nordvolt/voltra/internal/customer"
	"github.com/nordvolt/voltra/internal/datahub"
	"github.com/nordvolt/voltra/internal/inbox"
	"github.com/nordvolt/voltra/internal/logger"
	"github.com/nordvolt/voltra/internal/meteringpoint"
	"github.com/nordvolt/voltra/internal/migration"
	"github.com/nordvolt/voltra/internal/observability"
	"github.com/nordvolt/voltra/internal/outbox"
	"github.com/nordvolt/voltra/internal/price"
	"github.com/nordvolt/voltra/internal/product"
	"github.com/nordvolt/voltra/internal/server"
	"github.com/nordvolt/voltra/internal/settlement"
	"github.com/nordvolt/voltra/internal/spotprice"
	"github.com/nordvolt/voltra/internal/supply"
	"github.com/nordvolt/voltra/internal/timeseries"
	"github.com/nordvolt/voltra/internal/wholesale"
	"github.com/nordvolt/voltra/internal/worker"
	"github.com/nordvolt/voltra/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Master data
		customer.Module,
		meteringpoint.Module,
		supply.Module,
		product.Module,
		price.Module,

		// Market pipeline
		datahub.Module,
		inbox.Module,
		outbox.Module,
		timeseries.Module,
		spotprice.Module,
		settlement.Module,
		wholesale.Module,

		// Surfaces
		worker.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
