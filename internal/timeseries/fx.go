package timeseries

import (
	"github.com/nordvolt/voltra/internal/timeseries/repository"
	"github.com/nordvolt/voltra/internal/timeseries/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timeseries.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
