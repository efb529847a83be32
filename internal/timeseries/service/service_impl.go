package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordvolt/voltra/internal/market"
	mpdomain "github.com/nordvolt/voltra/internal/meteringpoint/domain"
	"github.com/nordvolt/voltra/internal/timeseries/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	MPRepo mpdomain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	mpRepo mpdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("timeseries.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		mpRepo: p.MPRepo,
	}
}

func (s *Service) Ingest(ctx context.Context, messageID, businessReason string, wire market.MeteredDataSeries) (*domain.TimeSeries, error) {
	mp, err := s.mpRepo.FindByGSRN(ctx, s.db, wire.GSRN.String())
	if err != nil {
		return nil, err
	}
	if mp == nil {
		return nil, domain.ErrUnknownMeteringPoint
	}

	periodStart := wire.Period.Start.UTC()
	periodEnd := wire.Period.End.UTC()

	// Inbox redelivery must not mint a new version of the same delivery.
	if messageID != "" {
		latest, err := s.repo.FindLatest(ctx, s.db, mp.ID, periodStart)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.MessageID == messageID && latest.TransactionID == wire.TransactionID {
			s.log.Info("time series delivery already stored",
				zap.String("gsrn", wire.GSRN.String()),
				zap.String("message_id", messageID),
				zap.Int("version", latest.Version),
			)
			return latest, nil
		}
	}

	kept := make([]market.WireObservation, 0, len(wire.Observations))
	dropped := 0
	for _, obs := range wire.Observations {
		if !wire.Period.Contains(obs.Timestamp) {
			dropped++
			continue
		}
		kept = append(kept, obs)
	}
	if dropped > 0 {
		s.log.Warn("observations outside series period dropped",
			zap.String("gsrn", wire.GSRN.String()),
			zap.Time("period_start", periodStart),
			zap.Int("dropped", dropped),
		)
	}

	var series *domain.TimeSeries
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		maxVersion, err := s.repo.MaxVersion(ctx, tx, mp.ID, periodStart)
		if err != nil {
			return err
		}
		if err := s.repo.ClearLatest(ctx, tx, mp.ID, periodStart); err != nil {
			return err
		}

		series = &domain.TimeSeries{
			ID:              s.genID.Generate().Int64(),
			MeteringPointID: mp.ID,
			PeriodStart:     periodStart,
			PeriodEnd:       periodEnd,
			Resolution:      wire.Resolution.String(),
			Version:         maxVersion + 1,
			IsLatest:        true,
			TransactionID:   wire.TransactionID,
			MessageID:       messageID,
			BusinessReason:  businessReason,
			PointCount:      len(kept),
			ReceivedAt:      time.Now().UTC(),
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.repo.Create(ctx, tx, series); err != nil {
			return err
		}

		observations := make([]domain.Observation, 0, len(kept))
		for _, obs := range kept {
			observations = append(observations, domain.Observation{
				ID:           s.genID.Generate().Int64(),
				TimeSeriesID: series.ID,
				Timestamp:    obs.Timestamp.UTC(),
				Quantity:     obs.Quantity,
				Quality:      string(obs.Quality),
			})
		}
		return s.repo.InsertObservations(ctx, tx, observations)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("time series ingested",
		zap.String("gsrn", wire.GSRN.String()),
		zap.Time("period_start", periodStart),
		zap.Int("version", series.Version),
		zap.Int("points", series.PointCount),
		zap.String("business_reason", businessReason),
	)
	return series, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.TimeSeries, error) {
	series, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if series == nil {
		return nil, domain.ErrNotFound
	}
	return series, nil
}

func (s *Service) GetLatest(ctx context.Context, meteringPointID int64, periodStart time.Time) (*domain.TimeSeries, error) {
	series, err := s.repo.FindLatest(ctx, s.db, meteringPointID, periodStart.UTC())
	if err != nil {
		return nil, err
	}
	if series == nil {
		return nil, domain.ErrNotFound
	}
	return series, nil
}

func (s *Service) Observations(ctx context.Context, timeSeriesID int64) ([]domain.Observation, error) {
	return s.repo.ListObservations(ctx, s.db, timeSeriesID)
}

func (s *Service) Versions(ctx context.Context, meteringPointID int64, periodStart time.Time) ([]domain.TimeSeries, error) {
	return s.repo.ListVersions(ctx, s.db, meteringPointID, periodStart.UTC())
}
