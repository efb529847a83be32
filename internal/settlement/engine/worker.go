// Package engine drives settlement: it scans for unsettled latest-version
// time series, gathers their priced inputs and persists either a new
// settlement or a correction against what was already billed.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	"github.com/nordvolt/voltra/internal/market"
	mpdomain "github.com/nordvolt/voltra/internal/meteringpoint/domain"
	obsmetrics "github.com/nordvolt/voltra/internal/observability/metrics"
	pricedomain "github.com/nordvolt/voltra/internal/price/domain"
	productdomain "github.com/nordvolt/voltra/internal/product/domain"
	"github.com/nordvolt/voltra/internal/settlement/calc"
	"github.com/nordvolt/voltra/internal/settlement/domain"
	spotdomain "github.com/nordvolt/voltra/internal/spotprice/domain"
	supplydomain "github.com/nordvolt/voltra/internal/supply/domain"
	tsdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
)

type Params struct {
	fx.In

	Cfg      config.Config
	Market   *config.MarketConfigHolder
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	TSRepo   tsdomain.Repository
	MPRepo   mpdomain.Repository
	Supplies supplydomain.Service
	Products productdomain.Service
	Prices   pricedomain.Service
	Spot     spotdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Worker settles one batch of candidate series per cycle. Candidates it
// cannot settle are left in place: validation problems become Open issues,
// anything else is logged and retried next cycle.
type Worker struct {
	cfg      config.Config
	market   *config.MarketConfigHolder
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	tsRepo   tsdomain.Repository
	mpRepo   mpdomain.Repository
	supplies supplydomain.Service
	products productdomain.Service
	prices   pricedomain.Service
	spot     spotdomain.Service
	metrics  *obsmetrics.Metrics
}

func NewWorker(p Params) *Worker {
	return &Worker{
		cfg:      p.Cfg,
		market:   p.Market,
		db:       p.DB,
		log:      p.Log.Named("settlement.engine"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		tsRepo:   p.TSRepo,
		mpRepo:   p.MPRepo,
		supplies: p.Supplies,
		products: p.Products,
		prices:   p.Prices,
		spot:     p.Spot,
		metrics:  p.Metrics,
	}
}

func (w *Worker) Name() string { return "settlement_engine" }

func (w *Worker) Interval() time.Duration { return w.cfg.SettlementPollInterval }

func (w *Worker) RunOnce(ctx context.Context) error {
	candidates, err := w.repo.FindCandidates(ctx, w.db, w.cfg.SettlementBatchSize)
	if err != nil {
		return fmt.Errorf("find settlement candidates: %w", err)
	}

	settled := 0
	var errs []error
	for _, series := range candidates {
		if ctx.Err() != nil {
			break
		}
		outcome, err := w.settleSeries(ctx, series)
		if err != nil {
			w.log.Warn("settlement candidate failed, will retry",
				zap.Int64("time_series_id", series.ID),
				zap.Int("version", series.Version),
				zap.Error(err))
			obsmetrics.Worker().IncPipelineError(obsmetrics.PipelineStageSettle, err)
			errs = append(errs, err)
			continue
		}
		if outcome == outcomeSettled {
			settled++
		}
	}
	if settled > 0 {
		obsmetrics.Worker().AddBatchProcessed(w.Name(), "settlements", settled)
	}

	if backlog, err := w.repo.CountCandidates(ctx, w.db); err == nil {
		obsmetrics.Worker().SetBacklog(obsmetrics.BacklogResourceSettlements, int(backlog))
	}
	return errors.Join(errs...)
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeBlocked
	outcomeSettled
)

func (w *Worker) settleSeries(ctx context.Context, series tsdomain.TimeSeries) (outcome, error) {
	mp, err := w.mpRepo.FindByID(ctx, w.db, series.MeteringPointID)
	if err != nil {
		return outcomeSkipped, err
	}
	if mp == nil {
		return outcomeSkipped, fmt.Errorf("metering point %d referenced by series %d not found", series.MeteringPointID, series.ID)
	}

	period, err := market.NewPeriod(series.PeriodStart, series.PeriodEnd)
	if err != nil {
		return outcomeSkipped, err
	}

	supply, err := w.supplies.ActiveAt(ctx, mp.ID, period.Start)
	if errors.Is(err, supplydomain.ErrNoActiveSupply) {
		w.log.Debug("no supply in force, skipping series",
			zap.String("gsrn", mp.GSRN),
			zap.Time("period_start", period.Start))
		obsmetrics.Worker().IncBatchDeferred(w.Name(), "no_supply")
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeSkipped, err
	}

	observations, err := w.tsRepo.ListObservations(ctx, w.db, series.ID)
	if err != nil {
		return outcomeSkipped, err
	}
	if len(observations) == 0 {
		w.log.Debug("series has no observations, skipping",
			zap.Int64("time_series_id", series.ID))
		obsmetrics.Worker().IncBatchDeferred(w.Name(), "empty_series")
		return outcomeSkipped, nil
	}

	in, blocking, err := w.gatherInputs(ctx, mp, supply.ID, series, period, observations)
	if err != nil {
		return outcomeSkipped, err
	}
	if len(blocking) == 0 {
		blocking = calc.Validate(*in)
	}
	if len(blocking) > 0 {
		if err := w.reportIssues(ctx, mp.ID, series, blocking); err != nil {
			return outcomeSkipped, err
		}
		return outcomeBlocked, nil
	}

	trigger, err := w.persistSettlement(ctx, mp, supply.ID, series, *in)
	if err != nil {
		return outcomeSkipped, err
	}
	if w.metrics != nil {
		w.metrics.RecordSettlement(ctx, trigger, domain.StatusCalculated)
	}
	return outcomeSettled, nil
}

// gatherInputs loads everything the calculator needs. Absent master data
// that an operator must fix comes back as blocking issues; infrastructure
// errors come back as errors and the candidate is retried.
func (w *Worker) gatherInputs(ctx context.Context, mp *mpdomain.MeteringPoint, supplyID int64, series tsdomain.TimeSeries, period market.Period, observations []tsdomain.Observation) (*calc.Input, []calc.Issue, error) {
	product, err := w.products.ProductAt(ctx, supplyID, period.Start)
	if errors.Is(err, productdomain.ErrNoProduct) {
		return nil, []calc.Issue{{
			Kind:    domain.IssueMissingPriceElements,
			Message: fmt.Sprintf("no product assigned to supply %d at %s", supplyID, period.Start.UTC().Format(time.RFC3339)),
		}}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	model, err := market.ParsePricingModel(product.PricingModel)
	if err != nil {
		return nil, nil, fmt.Errorf("product %s: %w", product.Code, err)
	}

	var margin *decimal.Decimal
	rate, err := w.products.MarginAt(ctx, product.ID, period.Start)
	switch {
	case errors.Is(err, productdomain.ErrNoMargin):
		// The validator reports it alongside any other gaps.
	case err != nil:
		return nil, nil, err
	default:
		margin = &rate
	}

	prices, err := w.prices.ActivePricesFor(ctx, mp.ID, period)
	if err != nil {
		return nil, nil, err
	}

	area, err := market.ParsePriceArea(w.market.Get().PriceAreaFor(mp.GridAreaCode))
	if err != nil {
		return nil, nil, err
	}

	in := &calc.Input{
		Series:       series,
		Observations: observations,
		PricingModel: model,
		PriceArea:    area,
		Prices:       prices,
		Margin:       margin,
	}
	if model == market.PricingSpotAddon {
		curve, err := w.spot.CurveFor(ctx, area, period)
		if err != nil {
			return nil, nil, err
		}
		in.Spot = curve
	}
	return in, nil, nil
}

// persistSettlement runs the calculator and writes the outcome in one
// transaction. The correction branch is taken when a billed settlement for
// the exact period exists; its baseline sums every billed row so a second
// correction bills only what the first one missed.
func (w *Worker) persistSettlement(ctx context.Context, mp *mpdomain.MeteringPoint, supplyID int64, series tsdomain.TimeSeries, in calc.Input) (string, error) {
	now := w.clock.Now().UTC()
	trigger := "initial"

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := w.repo.FindForPeriod(ctx, tx, mp.ID, series.PeriodStart)
		if err != nil {
			return err
		}

		var billed []domain.Settlement
		var previous *domain.Settlement
		for i := range existing {
			s := existing[i]
			if !s.PeriodEnd.Equal(series.PeriodEnd) || !s.Billed() {
				continue
			}
			billed = append(billed, s)
			if s.Status == domain.StatusInvoiced || s.Status == domain.StatusMigrated {
				previous = &existing[i]
			}
		}

		var result *calc.Result
		settlement := &domain.Settlement{
			ID:                w.genID.Generate().Int64(),
			MeteringPointID:   mp.ID,
			SupplyID:          supplyID,
			TimeSeriesID:      series.ID,
			TimeSeriesVersion: series.Version,
			PeriodStart:       series.PeriodStart,
			PeriodEnd:         series.PeriodEnd,
			Resolution:        series.Resolution,
			PricingModel:      string(in.PricingModel),
			PriceArea:         in.PriceArea.String(),
			Currency:          "DKK",
			Status:            domain.StatusCalculated,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		if previous != nil {
			trigger = "correction"
			baseline, baselineEnergy, err := w.loadBaseline(ctx, tx, billed)
			if err != nil {
				return err
			}
			result, err = calc.CalculateCorrection(in, baseline, baselineEnergy)
			if err != nil {
				return err
			}
			if err := previous.MarkAdjusted(now); err != nil {
				return err
			}
			if err := w.repo.Update(ctx, tx, previous); err != nil {
				return err
			}
			settlement.IsCorrection = true
			settlement.PreviousSettlementID = &previous.ID
		} else {
			result, err = calc.Calculate(in)
			if err != nil {
				return err
			}
		}

		sequence, err := w.repo.NextDocumentNumber(ctx, tx, now.Year())
		if err != nil {
			return err
		}
		settlement.DocumentNumber = domain.FormatDocumentNumber(now.Year(), sequence)
		settlement.TotalEnergy = result.TotalEnergy
		settlement.TotalAmount = result.TotalAmount

		if err := w.repo.Create(ctx, tx, settlement); err != nil {
			return err
		}
		lines := result.Lines
		for i := range lines {
			lines[i].ID = w.genID.Generate().Int64()
			lines[i].SettlementID = settlement.ID
			lines[i].CreatedAt = now
		}
		if err := w.repo.InsertLines(ctx, tx, lines); err != nil {
			return err
		}

		if err := w.repo.ResolveOpenIssues(ctx, tx, mp.ID, series.PeriodStart, now); err != nil {
			return err
		}

		w.log.Info("settlement persisted",
			zap.String("document_number", settlement.DocumentNumber),
			zap.String("gsrn", mp.GSRN),
			zap.Int64("time_series_id", series.ID),
			zap.Int("version", series.Version),
			zap.Bool("is_correction", settlement.IsCorrection),
			zap.String("total_amount", settlement.TotalAmount.String()))
		return nil
	})
	if err != nil {
		return trigger, err
	}
	if trigger == "correction" {
		obsmetrics.Worker().IncSettlementTransition(domain.StatusInvoiced, domain.StatusAdjusted)
	}
	return trigger, nil
}

// loadBaseline aggregates the lines and energy of every billed settlement
// for the period. For a first correction that is just the invoiced
// original; afterwards it is original plus prior deltas, which together
// equal whatever the customer has been billed so far.
func (w *Worker) loadBaseline(ctx context.Context, tx *gorm.DB, billed []domain.Settlement) ([]domain.SettlementLine, decimal.Decimal, error) {
	var lines []domain.SettlementLine
	energy := decimal.Zero
	for _, s := range billed {
		settlementLines, err := w.repo.ListLines(ctx, tx, s.ID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		lines = append(lines, settlementLines...)
		energy = energy.Add(s.TotalEnergy)
	}
	return lines, energy, nil
}

// reportIssues upserts the Open issue for the series version. Reruns
// refresh the stored details instead of stacking duplicates.
func (w *Worker) reportIssues(ctx context.Context, meteringPointID int64, series tsdomain.TimeSeries, issues []calc.Issue) error {
	kind := domain.IssuePriceCoverageGap
	for _, issue := range issues {
		if issue.Kind == domain.IssueMissingPriceElements {
			kind = domain.IssueMissingPriceElements
			break
		}
	}
	details, err := json.Marshal(issues)
	if err != nil {
		return err
	}
	now := w.clock.Now().UTC()

	created := false
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		open, err := w.repo.FindOpenIssue(ctx, tx, meteringPointID, series.ID, series.Version)
		if err != nil {
			return err
		}
		if open != nil {
			open.Kind = kind
			open.Details = datatypes.JSON(details)
			return w.repo.UpdateIssue(ctx, tx, open)
		}
		created = true
		return w.repo.CreateIssue(ctx, tx, &domain.SettlementIssue{
			ID:                w.genID.Generate().Int64(),
			MeteringPointID:   meteringPointID,
			TimeSeriesID:      series.ID,
			TimeSeriesVersion: series.Version,
			PeriodStart:       series.PeriodStart,
			Kind:              kind,
			Details:           datatypes.JSON(details),
			Status:            domain.IssueStatusOpen,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	})
	if err != nil {
		return err
	}

	if created && w.metrics != nil {
		w.metrics.RecordIssue(ctx, kind)
	}
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	w.log.Warn("settlement blocked",
		zap.Int64("time_series_id", series.ID),
		zap.Int("version", series.Version),
		zap.String("kind", kind),
		zap.Strings("issues", messages))
	return nil
}
