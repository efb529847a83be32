package datahub

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nordvolt/voltra/internal/config"
	"github.com/nordvolt/voltra/internal/worker"
)

// NewTransport picks the wire implementation from the hub credentials.
func NewTransport(cfg config.Config, log *zap.Logger) Transport {
	if cfg.Hub.Simulation() {
		log.Named("datahub").Info("hub credentials absent, running in simulation mode")
		return newSimTransport(log)
	}
	return newHTTPTransport(cfg.Hub, log)
}

var Module = fx.Module("datahub",
	fx.Provide(NewTransport),
	worker.Provide(NewFetcher),
)
