package price

import (
	"github.com/nordvolt/voltra/internal/price/repository"
	"github.com/nordvolt/voltra/internal/price/service"
	"go.uber.org/fx"
)

var Module = fx.Module("price.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
