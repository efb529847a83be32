// Package ingest keeps the stored spot curve current with the day-ahead
// auction results.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	"github.com/nordvolt/voltra/internal/market"
	obsmetrics "github.com/nordvolt/voltra/internal/observability/metrics"
	"github.com/nordvolt/voltra/internal/spotprice/client"
	"github.com/nordvolt/voltra/internal/spotprice/domain"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Market  *config.MarketConfigHolder
	Log     *zap.Logger
	Clock   clock.Clock
	Fetcher client.Fetcher
	Svc     domain.Service
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Worker fetches prices for every configured bidding zone from the start of
// today through the configured lookahead and upserts them.
type Worker struct {
	cfg     config.Config
	market  *config.MarketConfigHolder
	log     *zap.Logger
	clock   clock.Clock
	fetcher client.Fetcher
	svc     domain.Service
	metrics *obsmetrics.Metrics
}

func NewWorker(p Params) *Worker {
	return &Worker{
		cfg:     p.Cfg,
		market:  p.Market,
		log:     p.Log.Named("spotprice.ingest"),
		clock:   p.Clock,
		fetcher: p.Fetcher,
		svc:     p.Svc,
		metrics: p.Metrics,
	}
}

func (w *Worker) Name() string { return "spot_ingest" }

func (w *Worker) Interval() time.Duration { return w.cfg.SpotPollInterval }

func (w *Worker) RunOnce(ctx context.Context) error {
	if w.cfg.SpotBaseURL == "" {
		return nil
	}

	marketCfg := w.market.Get()
	from := startOfDayUTC(w.clock.Now())
	to := from.AddDate(0, 0, marketCfg.SpotLookaheadDays+1)

	var errs []error
	for _, name := range marketCfg.SpotAreas {
		area, err := market.ParsePriceArea(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("spot area %q: %w", name, err))
			continue
		}

		quotes, err := w.fetcher.FetchSpotPrices(ctx, area, from, to)
		if err != nil {
			obsmetrics.Worker().IncPipelineError(obsmetrics.PipelineStageSpot, err)
			errs = append(errs, fmt.Errorf("fetch %s: %w", area, err))
			continue
		}

		count, err := w.svc.Ingest(ctx, area, quotes)
		if err != nil {
			obsmetrics.Worker().IncPipelineError(obsmetrics.PipelineStageSpot, err)
			errs = append(errs, fmt.Errorf("ingest %s: %w", area, err))
			continue
		}

		w.metrics.RecordSpotPricePoints(ctx, string(area), count)
		if count > 0 {
			w.log.Debug("spot prices refreshed",
				zap.String("price_area", string(area)),
				zap.Int("points", count),
				zap.Time("from", from),
				zap.Time("to", to),
			)
		}
	}
	return errors.Join(errs...)
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
