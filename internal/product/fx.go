package product

import (
	"github.com/nordvolt/voltra/internal/product/repository"
	"github.com/nordvolt/voltra/internal/product/service"
	"go.uber.org/fx"
)

var Module = fx.Module("product.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
