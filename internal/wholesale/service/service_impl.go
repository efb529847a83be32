package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/market"
	"github.com/nordvolt/voltra/internal/wholesale/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("wholesale.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) RecordAggregated(ctx context.Context, messageID string, series market.AggregatedSeries) (*domain.AggregatedTimeSeries, error) {
	points := make([]domain.AggregatedPoint, 0, len(series.Observations))
	total := decimal.Zero
	for _, obs := range series.Observations {
		points = append(points, domain.AggregatedPoint{
			Timestamp: obs.Timestamp,
			Quantity:  obs.Quantity,
			Quality:   string(obs.Quality),
		})
		total = total.Add(obs.Quantity)
	}
	encoded, err := json.Marshal(points)
	if err != nil {
		return nil, err
	}

	row := &domain.AggregatedTimeSeries{
		ID:            s.genID.Generate().Int64(),
		GridAreaCode:  series.GridAreaCode,
		PeriodStart:   series.Period.Start.UTC(),
		PeriodEnd:     series.Period.End.UTC(),
		Resolution:    series.Resolution.String(),
		TotalQuantity: market.RoundEnergy(total),
		Points:        datatypes.JSON(encoded),
		TransactionID: series.TransactionID,
		MessageID:     messageID,
		ReceivedAt:    s.clock.Now().UTC(),
	}
	if err := s.repo.InsertAggregated(ctx, s.db, row); err != nil {
		return nil, err
	}

	s.log.Info("aggregated series recorded",
		zap.String("grid_area", row.GridAreaCode),
		zap.Time("period_start", row.PeriodStart),
		zap.String("total_quantity", row.TotalQuantity.String()))
	return row, nil
}

func (s *Service) RecordWholesale(ctx context.Context, messageID string, series market.WholesaleSeries) (*domain.WholesaleSettlement, error) {
	row := &domain.WholesaleSettlement{
		ID:            s.genID.Generate().Int64(),
		GridAreaCode:  series.GridAreaCode,
		ChargeID:      series.ChargeID,
		ChargeOwner:   series.ChargeOwner.String(),
		ChargeType:    string(series.ChargeType),
		PeriodStart:   series.Period.Start.UTC(),
		PeriodEnd:     series.Period.End.UTC(),
		Quantity:      market.RoundEnergy(series.Quantity),
		Amount:        market.RoundAmount(series.Amount),
		Currency:      series.Currency,
		TransactionID: series.TransactionID,
		MessageID:     messageID,
		ReceivedAt:    s.clock.Now().UTC(),
	}
	if err := s.repo.InsertWholesale(ctx, s.db, row); err != nil {
		return nil, err
	}

	s.log.Info("wholesale settlement recorded",
		zap.String("grid_area", row.GridAreaCode),
		zap.String("charge_id", row.ChargeID),
		zap.String("amount", row.Amount.String()))
	return row, nil
}

func (s *Service) ListAggregated(ctx context.Context, gridArea string, from, to time.Time) ([]domain.AggregatedTimeSeries, error) {
	return s.repo.ListAggregated(ctx, s.db, gridArea, from.UTC(), to.UTC())
}

func (s *Service) ListWholesale(ctx context.Context, gridArea string, from, to time.Time) ([]domain.WholesaleSettlement, error) {
	return s.repo.ListWholesale(ctx, s.db, gridArea, from.UTC(), to.UTC())
}
