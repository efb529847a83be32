package inbox

import (
	"go.uber.org/fx"

	"github.com/nordvolt/voltra/internal/inbox/repository"
	"github.com/nordvolt/voltra/internal/inbox/router"
	"github.com/nordvolt/voltra/internal/inbox/service"
	"github.com/nordvolt/voltra/internal/worker"
)

var Module = fx.Module("inbox.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	worker.Provide(router.NewWorker),
)
