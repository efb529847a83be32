package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordvolt/voltra/internal/market"
	mpdomain "github.com/nordvolt/voltra/internal/meteringpoint/domain"
	"github.com/nordvolt/voltra/internal/price/domain"
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
		log:    p.Log.Named("price.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		mpRepo: p.MPRepo,
	}
}

func (s *Service) UpsertPriceInfo(ctx context.Context, info market.PriceInfo) (*domain.Price, error) {
	if info.IsTax && info.Type != market.PriceTypeTariff {
		return nil, domain.ErrTaxOnNonTariff
	}
	// pass-through only makes sense for recurring charges
	passThrough := info.IsPassThrough
	if info.Type == market.PriceTypeFee {
		passThrough = false
	}

	chargeID := strings.TrimSpace(info.ChargeID)
	owner := info.OwnerGLN.String()

	price, err := s.repo.FindByCharge(ctx, s.db, chargeID, owner)
	if err != nil {
		return nil, err
	}

	if price == nil {
		now := time.Now().UTC()
		price = &domain.Price{
			ID:            s.genID.Generate().Int64(),
			ChargeID:      chargeID,
			OwnerGLN:      owner,
			Type:          string(info.Type),
			Category:      string(info.Category),
			Description:   info.Description,
			VATExempt:     info.VATExempt,
			IsTax:         info.IsTax,
			IsPassThrough: passThrough,
			Resolution:    info.Resolution.String(),
			ValidFrom:     info.Validity.Start,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if !info.Validity.OpenEnded() {
			end := info.Validity.End
			price.ValidTo = &end
		}
		if err := s.repo.Create(ctx, s.db, price); err != nil {
			return nil, err
		}
		s.log.Info("price registered",
			zap.String("charge_id", price.ChargeID),
			zap.String("owner_gln", price.OwnerGLN),
			zap.String("type", price.Type),
			zap.String("category", price.Category),
		)
		return price, nil
	}

	if price.Type != string(info.Type) {
		return nil, domain.ErrTypeChange
	}

	price.Category = string(info.Category)
	price.Description = info.Description
	price.VATExempt = info.VATExempt
	price.IsTax = info.IsTax
	price.IsPassThrough = passThrough
	price.Resolution = info.Resolution.String()
	price.ValidFrom = info.Validity.Start
	price.ValidTo = nil
	if !info.Validity.OpenEnded() {
		end := info.Validity.End
		price.ValidTo = &end
	}
	if err := s.repo.Update(ctx, s.db, price); err != nil {
		return nil, err
	}
	return price, nil
}

func (s *Service) ReplacePricePoints(ctx context.Context, update market.PriceSeriesUpdate) error {
	price, err := s.repo.FindByCharge(ctx, s.db, strings.TrimSpace(update.ChargeID), update.OwnerGLN.String())
	if err != nil {
		return err
	}
	if price == nil {
		return domain.ErrUnknownCharge
	}
	if update.Period.Start.IsZero() || update.Period.OpenEnded() {
		return domain.ErrEmptyPointRange
	}

	points := make([]domain.PricePoint, 0, len(update.Points))
	for _, p := range update.Points {
		if !update.Period.Contains(p.Timestamp) {
			continue
		}
		points = append(points, domain.PricePoint{
			ID:        s.genID.Generate().Int64(),
			PriceID:   price.ID,
			Timestamp: p.Timestamp.UTC(),
			Rate:      p.Rate,
			CreatedAt: time.Now().UTC(),
		})
	}

	// A subscription is rated by a single periodic amount, so it keeps at
	// most one point and an update supersedes whatever was stored before.
	subscription := price.Type == string(market.PriceTypeSubscription)
	if subscription && len(points) > 1 {
		return domain.ErrSubscriptionPoints
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if subscription {
			if err := s.repo.DeleteAllPoints(ctx, tx, price.ID); err != nil {
				return err
			}
		} else if err := s.repo.DeletePointsInRange(ctx, tx, price.ID, update.Period.Start, update.Period.End); err != nil {
			return err
		}
		return s.repo.InsertPoints(ctx, tx, points)
	})
	if err != nil {
		return err
	}

	s.log.Info("price points replaced",
		zap.String("charge_id", price.ChargeID),
		zap.String("owner_gln", price.OwnerGLN),
		zap.Time("from", update.Period.Start),
		zap.Time("to", update.Period.End),
		zap.Int("points", len(points)),
	)
	return nil
}

func (s *Service) UpsertLink(ctx context.Context, change market.PriceLinkChange) error {
	price, err := s.repo.FindByCharge(ctx, s.db, strings.TrimSpace(change.ChargeID), change.OwnerGLN.String())
	if err != nil {
		return err
	}
	if price == nil {
		return domain.ErrUnknownCharge
	}

	mp, err := s.mpRepo.FindByGSRN(ctx, s.db, change.GSRN.String())
	if err != nil {
		return err
	}
	if mp == nil {
		return domain.ErrUnknownGSRN
	}

	start := change.Link.Start.UTC()
	var end *time.Time
	if !change.Link.OpenEnded() {
		e := change.Link.End.UTC()
		end = &e
	}

	link, err := s.repo.FindLink(ctx, s.db, price.ID, mp.ID, start)
	if err != nil {
		return err
	}
	if link != nil {
		link.EndAt = end
		return s.repo.UpdateLink(ctx, s.db, link)
	}

	now := time.Now().UTC()
	return s.repo.CreateLink(ctx, s.db, &domain.PriceLink{
		ID:              s.genID.Generate().Int64(),
		PriceID:         price.ID,
		MeteringPointID: mp.ID,
		StartAt:         start,
		EndAt:           end,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (s *Service) ActivePricesFor(ctx context.Context, meteringPointID int64, period market.Period) ([]domain.PriceWithPoints, error) {
	prices, err := s.repo.ListLinkedPrices(ctx, s.db, meteringPointID, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PriceWithPoints, 0, len(prices))
	for _, price := range prices {
		backstop, err := s.repo.FindPointAtOrBefore(ctx, s.db, price.ID, period.Start)
		if err != nil {
			return nil, err
		}
		inRange, err := s.repo.ListPointsInRange(ctx, s.db, price.ID, period.Start, period.End)
		if err != nil {
			return nil, err
		}

		points := make([]domain.PricePoint, 0, len(inRange)+1)
		if backstop != nil {
			points = append(points, *backstop)
		}
		points = append(points, inRange...)
		out = append(out, domain.PriceWithPoints{Price: price, Points: points})
	}
	return out, nil
}

func (s *Service) GetByCharge(ctx context.Context, chargeID, ownerGLN string) (*domain.Price, error) {
	price, err := s.repo.FindByCharge(ctx, s.db, strings.TrimSpace(chargeID), strings.TrimSpace(ownerGLN))
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, domain.ErrUnknownCharge
	}
	return price, nil
}
