package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordvolt/voltra/internal/market"
	"github.com/nordvolt/voltra/internal/product/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) EnsureProduct(ctx context.Context, code, name string, model market.PricingModel) (*domain.SupplierProduct, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrUnknownProduct
	}

	product, err := s.repo.FindProductByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}

	now := time.Now().UTC()
	product = &domain.SupplierProduct{
		ID:           s.genID.Generate().Int64(),
		Code:         code,
		Name:         name,
		PricingModel: string(model),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateProduct(ctx, s.db, product); err != nil {
		return nil, err
	}
	s.log.Info("product registered",
		zap.String("code", product.Code),
		zap.String("pricing_model", product.PricingModel),
	)
	return product, nil
}

func (s *Service) SetMargin(ctx context.Context, productID int64, validFrom time.Time, rate decimal.Decimal) error {
	validFrom = validFrom.UTC()

	existing, err := s.repo.FindMarginByValidFrom(ctx, s.db, productID, validFrom)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Rate.Equal(rate) {
			return nil
		}
		return s.repo.UpdateMarginRate(ctx, s.db, existing.ID, rate)
	}

	return s.repo.CreateMargin(ctx, s.db, &domain.SupplierMargin{
		ID:        s.genID.Generate().Int64(),
		ProductID: productID,
		ValidFrom: validFrom,
		Rate:      rate,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) AssignDefaultProduct(ctx context.Context, supplyID int64, from time.Time) error {
	from = from.UTC()

	existing, err := s.repo.FindPeriodAt(ctx, s.db, supplyID, from)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	product, err := s.repo.FindProductByCode(ctx, s.db, domain.DefaultProductCode)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrUnknownProduct
	}

	return s.repo.CreatePeriod(ctx, s.db, &domain.SupplyProductPeriod{
		ID:        s.genID.Generate().Int64(),
		SupplyID:  supplyID,
		ProductID: product.ID,
		ValidFrom: from,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) ProductAt(ctx context.Context, supplyID int64, at time.Time) (*domain.SupplierProduct, error) {
	period, err := s.repo.FindPeriodAt(ctx, s.db, supplyID, at.UTC())
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNoProduct
	}

	product, err := s.repo.FindProductByID(ctx, s.db, period.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrUnknownProduct
	}
	return product, nil
}

func (s *Service) MarginAt(ctx context.Context, productID int64, at time.Time) (decimal.Decimal, error) {
	margin, err := s.repo.FindMarginAt(ctx, s.db, productID, at.UTC())
	if err != nil {
		return decimal.Zero, err
	}
	if margin == nil {
		return decimal.Zero, domain.ErrNoMargin
	}
	return margin.Rate, nil
}
