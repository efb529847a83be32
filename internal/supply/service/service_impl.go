package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/nordvolt/voltra/internal/customer/domain"
	"github.com/nordvolt/voltra/internal/market"
	mpdomain "github.com/nordvolt/voltra/internal/meteringpoint/domain"
	productdomain "github.com/nordvolt/voltra/internal/product/domain"
	"github.com/nordvolt/voltra/internal/supply/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	MPSvc       mpdomain.Service
	CustomerSvc customerdomain.Service
	ProductSvc  productdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	mpSvc       mpdomain.Service
	customerSvc customerdomain.Service
	productSvc  productdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("supply.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		mpSvc:       p.MPSvc,
		customerSvc: p.CustomerSvc,
		productSvc:  p.ProductSvc,
	}
}

func (s *Service) HandleSupplyChange(ctx context.Context, identityID int64, ev market.SupplyEvent) (*domain.Supply, error) {
	if !ev.Accepted {
		s.log.Info("supplier switch rejected",
			zap.String("gsrn", ev.GSRN.String()),
			zap.String("reason", ev.Reason),
		)
		return nil, nil
	}
	return s.startSupply(ctx, identityID, ev)
}

func (s *Service) HandleMove(ctx context.Context, identityID int64, ev market.SupplyEvent) (*domain.Supply, error) {
	if ev.MoveOut {
		return nil, s.endSupply(ctx, ev)
	}
	return s.startSupply(ctx, identityID, ev)
}

// startSupply closes any open supply at the effective date and opens a new
// one. Replaying the same event converges on the existing row.
func (s *Service) startSupply(ctx context.Context, identityID int64, ev market.SupplyEvent) (*domain.Supply, error) {
	mp, err := s.mpSvc.GetByGSRN(ctx, ev.GSRN.String())
	if err != nil {
		return nil, err
	}

	if ev.CustomerName == "" {
		return nil, domain.ErrMissingCustomer
	}
	in := customerdomain.EnsureCustomerInput{
		IdentityID: identityID,
		Name:       ev.CustomerName,
	}
	if ev.CPR != "" {
		cpr := ev.CPR.String()
		in.CPR = &cpr
	}
	if ev.CVR != "" {
		cvr := ev.CVR.String()
		in.CVR = &cvr
	}
	customer, err := s.customerSvc.EnsureCustomer(ctx, in)
	if err != nil {
		return nil, err
	}

	effective := ev.EffectiveDate.UTC()
	var supply *domain.Supply
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := s.repo.FindOpenByMeteringPoint(ctx, tx, mp.ID)
		if err != nil {
			return err
		}
		if open != nil {
			if open.CustomerID == customer.ID && open.StartAt.Equal(effective) {
				supply = open
				return nil
			}
			if !open.StartAt.Before(effective) {
				return domain.ErrStartAfterSwitch
			}
			if err := s.repo.Close(ctx, tx, open.ID, effective); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		supply = &domain.Supply{
			ID:              s.genID.Generate().Int64(),
			MeteringPointID: mp.ID,
			CustomerID:      customer.ID,
			StartAt:         effective,
			TransactionID:   ev.TransactionID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return s.repo.Create(ctx, tx, supply)
	})
	if err != nil {
		return nil, err
	}

	if err := s.productSvc.AssignDefaultProduct(ctx, supply.ID, effective); err != nil {
		return nil, err
	}
	if err := s.mpSvc.MarkActiveSupply(ctx, mp.ID, true); err != nil {
		return nil, err
	}

	s.log.Info("supply started",
		zap.String("gsrn", ev.GSRN.String()),
		zap.Int64("supply_id", supply.ID),
		zap.Time("effective", effective),
	)
	return supply, nil
}

func (s *Service) endSupply(ctx context.Context, ev market.SupplyEvent) error {
	mp, err := s.mpSvc.GetByGSRN(ctx, ev.GSRN.String())
	if err != nil {
		return err
	}

	open, err := s.repo.FindOpenByMeteringPoint(ctx, s.db, mp.ID)
	if err != nil {
		return err
	}
	if open == nil {
		s.log.Warn("move-out without open supply", zap.String("gsrn", ev.GSRN.String()))
		return nil
	}

	effective := ev.EffectiveDate.UTC()
	if err := s.repo.Close(ctx, s.db, open.ID, effective); err != nil {
		return err
	}
	if err := s.mpSvc.MarkActiveSupply(ctx, mp.ID, false); err != nil {
		return err
	}

	s.log.Info("supply ended",
		zap.String("gsrn", ev.GSRN.String()),
		zap.Int64("supply_id", open.ID),
		zap.Time("effective", effective),
	)
	return nil
}

func (s *Service) ActiveAt(ctx context.Context, meteringPointID int64, at time.Time) (*domain.Supply, error) {
	supply, err := s.repo.FindActiveAt(ctx, s.db, meteringPointID, at.UTC())
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return nil, domain.ErrNoActiveSupply
	}
	return supply, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Supply, error) {
	supply, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return nil, domain.ErrNotFound
	}
	return supply, nil
}
