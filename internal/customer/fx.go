package customer

import (
	"github.com/nordvolt/voltra/internal/customer/repository"
	"github.com/nordvolt/voltra/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
