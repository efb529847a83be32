package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordvolt/voltra/internal/market"
	"github.com/nordvolt/voltra/internal/meteringpoint/domain"
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

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("meteringpoint.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *service) ApplyMasterData(ctx context.Context, change market.MasterDataChange) (*domain.MeteringPoint, error) {
	if change.GSRN == "" {
		return nil, domain.ErrMissingGSRN
	}

	mp, err := s.repo.FindByGSRN(ctx, s.db, change.GSRN.String())
	if err != nil {
		return nil, err
	}

	if mp == nil {
		if change.Type == nil {
			return nil, domain.ErrMissingType
		}
		if change.GridAreaCode == nil {
			return nil, domain.ErrMissingGrid
		}
		mp = &domain.MeteringPoint{
			ID:        s.genID.Generate().Int64(),
			GSRN:      change.GSRN.String(),
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		applyChange(mp, change)
		if err := s.repo.Create(ctx, s.db, mp); err != nil {
			return nil, err
		}
		s.log.Info("metering point created",
			zap.String("gsrn", mp.GSRN),
			zap.String("grid_area", mp.GridAreaCode),
			zap.String("type", mp.Type),
		)
		return mp, nil
	}

	applyChange(mp, change)
	if err := s.repo.Update(ctx, s.db, mp); err != nil {
		return nil, err
	}
	s.log.Info("metering point updated",
		zap.String("gsrn", mp.GSRN),
		zap.Time("effective_at", change.EffectiveDate),
	)
	return mp, nil
}

// applyChange copies the present members of a partial update onto the
// stored record.
func applyChange(mp *domain.MeteringPoint, change market.MasterDataChange) {
	if change.Type != nil {
		mp.Type = string(*change.Type)
	}
	if change.Category != nil {
		mp.Category = string(*change.Category)
	}
	if change.SettlementMethod != nil {
		mp.SettlementMethod = string(*change.SettlementMethod)
	}
	if change.Resolution != nil {
		mp.Resolution = change.Resolution.String()
	}
	if change.ConnectionState != nil {
		mp.ConnectionState = string(*change.ConnectionState)
	}
	if change.GridAreaCode != nil {
		mp.GridAreaCode = *change.GridAreaCode
	}
	if change.GridCompany != nil {
		mp.GridCompanyGLN = change.GridCompany.String()
	}
	if change.Address != nil {
		mp.Street = strPtr(change.Address.Street)
		mp.BuildingNumber = strPtr(change.Address.Number)
		mp.PostalCode = strPtr(change.Address.PostalCode)
		mp.City = strPtr(change.Address.City)
	}
	if !change.EffectiveDate.IsZero() {
		t := change.EffectiveDate.UTC()
		mp.EffectiveAt = &t
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *service) GetByGSRN(ctx context.Context, gsrn string) (*domain.MeteringPoint, error) {
	mp, err := s.repo.FindByGSRN(ctx, s.db, gsrn)
	if err != nil {
		return nil, err
	}
	if mp == nil {
		return nil, domain.ErrNotFound
	}
	return mp, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*domain.MeteringPoint, error) {
	mp, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if mp == nil {
		return nil, domain.ErrNotFound
	}
	return mp, nil
}

func (s *service) MarkActiveSupply(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActiveSupply(ctx, s.db, id, active)
}
