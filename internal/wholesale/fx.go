package wholesale

import (
	"go.uber.org/fx"

	"github.com/nordvolt/voltra/internal/wholesale/repository"
	"github.com/nordvolt/voltra/internal/wholesale/service"
)

var Module = fx.Module("wholesale.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
