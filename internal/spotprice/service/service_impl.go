package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/market"
	"github.com/nordvolt/voltra/internal/spotprice/domain"
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
		log:   p.Log.Named("spotprice.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Ingest(ctx context.Context, area market.PriceArea, quotes []domain.Quote) (int, error) {
	if area == "" {
		return 0, domain.ErrUnknownArea
	}
	if len(quotes) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	points := make([]domain.SpotPrice, 0, len(quotes))
	for _, q := range quotes {
		points = append(points, domain.SpotPrice{
			ID:        s.genID.Generate().Int64(),
			PriceArea: string(area),
			Hour:      q.Hour.UTC().Truncate(time.Hour),
			PriceMWh:  q.PriceMWh,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.repo.Upsert(ctx, s.db, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

func (s *Service) CurveFor(ctx context.Context, area market.PriceArea, period market.Period) (domain.Curve, error) {
	points, err := s.repo.ListRange(ctx, s.db, string(area), period.Start, period.End)
	if err != nil {
		return nil, err
	}

	// A period starting mid-hour is still covered by the point at the top
	// of that hour. Prepend it when the range query missed it.
	if len(points) == 0 || points[0].Hour.After(period.Start) {
		backstop, err := s.repo.FindAtOrBefore(ctx, s.db, string(area), period.Start)
		if err != nil {
			return nil, err
		}
		if backstop != nil {
			points = append([]domain.SpotPrice{*backstop}, points...)
		}
	}

	return domain.Curve(points), nil
}

func (s *Service) ListRange(ctx context.Context, area market.PriceArea, start, end time.Time) ([]domain.SpotPrice, error) {
	return s.repo.ListRange(ctx, s.db, string(area), start, end)
}
