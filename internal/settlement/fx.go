package settlement

import (
	"go.uber.org/fx"

	"github.com/nordvolt/voltra/internal/settlement/engine"
	"github.com/nordvolt/voltra/internal/settlement/repository"
	"github.com/nordvolt/voltra/internal/settlement/service"
	"github.com/nordvolt/voltra/internal/worker"
)

var Module = fx.Module("settlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	worker.Provide(engine.NewWorker),
)
