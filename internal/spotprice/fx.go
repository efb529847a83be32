package spotprice

import (
	"go.uber.org/fx"

	"github.com/nordvolt/voltra/internal/spotprice/client"
	"github.com/nordvolt/voltra/internal/spotprice/ingest"
	"github.com/nordvolt/voltra/internal/spotprice/repository"
	"github.com/nordvolt/voltra/internal/spotprice/service"
	"github.com/nordvolt/voltra/internal/worker"
)

var Module = fx.Module("spotprice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(client.New),
	worker.Provide(ingest.NewWorker),
)
