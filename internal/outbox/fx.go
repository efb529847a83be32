package outbox

import (
	"go.uber.org/fx"

	"github.com/nordvolt/voltra/internal/outbox/dispatch"
	"github.com/nordvolt/voltra/internal/outbox/repository"
	"github.com/nordvolt/voltra/internal/outbox/service"
	"github.com/nordvolt/voltra/internal/worker"
)

var Module = fx.Module("outbox.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	worker.Provide(dispatch.NewWorker),
)
