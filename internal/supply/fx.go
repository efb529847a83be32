package supply

import (
	"github.com/nordvolt/voltra/internal/supply/repository"
	"github.com/nordvolt/voltra/internal/supply/service"
	"go.uber.org/fx"
)

var Module = fx.Module("supply.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
