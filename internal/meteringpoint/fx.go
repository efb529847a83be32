package meteringpoint

import (
	"github.com/nordvolt/voltra/internal/meteringpoint/repository"
	"github.com/nordvolt/voltra/internal/meteringpoint/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meteringpoint.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
