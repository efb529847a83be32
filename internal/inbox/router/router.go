// Package router drains the inbox: classify each stored document, hand it
// to its process handler, and record the outcome.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	customerdomain "github.com/nordvolt/voltra/internal/customer/domain"
	"github.com/nordvolt/voltra/internal/inbox/domain"
	"github.com/nordvolt/voltra/internal/market"
	mpdomain "github.com/nordvolt/voltra/internal/meteringpoint/domain"
	obsmetrics "github.com/nordvolt/voltra/internal/observability/metrics"
	outboxdomain "github.com/nordvolt/voltra/internal/outbox/domain"
	pricedomain "github.com/nordvolt/voltra/internal/price/domain"
	supplydomain "github.com/nordvolt/voltra/internal/supply/domain"
	tsdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
	wholesaledomain "github.com/nordvolt/voltra/internal/wholesale/domain"
	"github.com/nordvolt/voltra/pkg/log/ctxlogger"
	"github.com/nordvolt/voltra/pkg/telemetry/correlation"
)

// errNoHandler marks processes we classify but do not act on, such as the
// short-notice swap confirmations handled entirely by the hub.
var errNoHandler = errors.New("no handler for process")

type Params struct {
	fx.In

	DB    *gorm.DB
	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository

	CustomerSvc   customerdomain.Service
	SupplySvc     supplydomain.Service
	MPSvc         mpdomain.Service
	TimeSeriesSvc tsdomain.Service
	PriceSvc      pricedomain.Service
	WholesaleSvc  wholesaledomain.Service
	OutboxSvc     outboxdomain.Service

	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Worker struct {
	db    *gorm.DB
	cfg   config.Config
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository

	customerSvc   customerdomain.Service
	supplySvc     supplydomain.Service
	mpSvc         mpdomain.Service
	timeSeriesSvc tsdomain.Service
	priceSvc      pricedomain.Service
	wholesaleSvc  wholesaledomain.Service
	outboxSvc     outboxdomain.Service

	metrics *obsmetrics.Metrics
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:            p.DB,
		cfg:           p.Cfg,
		log:           p.Log.Named("inbox.router"),
		clock:         p.Clock,
		repo:          p.Repo,
		customerSvc:   p.CustomerSvc,
		supplySvc:     p.SupplySvc,
		mpSvc:         p.MPSvc,
		timeSeriesSvc: p.TimeSeriesSvc,
		priceSvc:      p.PriceSvc,
		wholesaleSvc:  p.WholesaleSvc,
		outboxSvc:     p.OutboxSvc,
		metrics:       p.Metrics,
	}
}

func (w *Worker) Name() string { return "inbox_router" }

func (w *Worker) Interval() time.Duration { return w.cfg.InboxPollInterval }

func (w *Worker) RunOnce(ctx context.Context) error {
	msgs, err := w.repo.FindUnprocessed(ctx, w.db, w.cfg.InboxBatchSize, w.cfg.InboxMaxAttempts)
	if err != nil {
		return err
	}

	if pending, err := w.repo.CountPending(ctx, w.db, w.cfg.InboxMaxAttempts); err == nil {
		obsmetrics.Worker().SetBacklog(obsmetrics.BacklogResourceInbox, int(pending))
	}

	var errs []error
	for i := range msgs {
		if err := w.process(ctx, &msgs[i]); err != nil {
			errs = append(errs, fmt.Errorf("message %s: %w", msgs[i].MessageID, err))
		}
	}
	if len(msgs) > 0 {
		obsmetrics.Worker().AddBatchProcessed(w.Name(), obsmetrics.BacklogResourceInbox, len(msgs))
	}
	return errors.Join(errs...)
}

// process routes one message and persists the verdict. The returned error
// is a persistence failure, never a routing one.
func (w *Worker) process(ctx context.Context, msg *domain.InboxMessage) error {
	ctx, _ = correlation.EnsureCorrelationID(ctx)
	routeErr := w.route(ctx, msg)

	now := w.clock.Now()
	log := ctxlogger.WithContext(ctx, w.log).With(
		zap.String("message_id", msg.MessageID),
		zap.String("business_process", msg.BusinessProcess),
	)

	switch {
	case routeErr == nil:
		msg.IsProcessed = true
		msg.ProcessedAt = &now
		msg.LastError = ""
		w.metrics.RecordInboxMessage(ctx, msg.BusinessProcess, "processed")

	case isSkip(routeErr):
		// Out-of-order arrival: the data this message needs is not here
		// yet or no longer ours. Dropping it is the contract.
		msg.IsProcessed = true
		msg.ProcessedAt = &now
		msg.LastError = routeErr.Error()
		w.metrics.RecordInboxMessage(ctx, msg.BusinessProcess, "skipped")
		log.Warn("message skipped", zap.Error(routeErr))

	case isPermanent(routeErr):
		msg.IsProcessed = true
		msg.ProcessedAt = &now
		msg.LastError = routeErr.Error()
		w.metrics.RecordInboxMessage(ctx, msg.BusinessProcess, "failed")
		log.Error("message failed permanently", zap.Error(routeErr))

	default:
		msg.Attempts++
		msg.LastError = routeErr.Error()
		if msg.Attempts >= w.cfg.InboxMaxAttempts {
			w.metrics.RecordInboxMessage(ctx, msg.BusinessProcess, "dead_lettered")
			log.Error("message dead-lettered",
				zap.Int("attempts", msg.Attempts),
				zap.Error(routeErr),
			)
		} else {
			w.metrics.RecordInboxMessage(ctx, msg.BusinessProcess, "retried")
			log.Warn("message routing failed, will retry",
				zap.Int("attempts", msg.Attempts),
				zap.Error(routeErr),
			)
		}
	}

	return w.repo.Update(ctx, w.db, msg)
}

func (w *Worker) route(ctx context.Context, msg *domain.InboxMessage) error {
	env, err := market.DecodeEnvelope(msg.Payload)
	if err != nil {
		return err
	}
	cls, err := market.Classify(env)
	if err != nil {
		return err
	}
	msg.BusinessProcess = string(cls.Process)
	msg.DocumentType = cls.DocumentType
	ctx = ctxlogger.ContextWithProcess(ctx, string(cls.Process))

	switch cls.Process {
	case market.ProcessSupplyChange, market.ProcessEndOfSupply:
		return w.handleSupplyChange(ctx, msg, env, cls.Process)
	case market.ProcessMove:
		return w.handleMove(ctx, msg, env)
	case market.ProcessMasterData:
		return w.handleMasterData(ctx, env)
	case market.ProcessMeteredData:
		return w.handleMeteredData(ctx, msg, env)
	case market.ProcessAggregatedData:
		return w.handleAggregatedData(ctx, msg, env)
	case market.ProcessWholesale:
		return w.handleWholesale(ctx, msg, env)
	case market.ProcessPriceInfo:
		return w.handlePriceInfo(ctx, env, cls.BusinessReason)
	case market.ProcessPriceLink:
		return w.handlePriceLink(ctx, env)
	default:
		return fmt.Errorf("%w: %s", errNoHandler, cls.Process)
	}
}

// identityFor resolves which of our supplier identities the hub addressed.
func (w *Worker) identityFor(ctx context.Context, msg *domain.InboxMessage) (int64, error) {
	gln := msg.ReceiverGLN
	if gln == "" {
		gln = w.cfg.SupplierGLN
	}
	identity, err := w.customerSvc.IdentityByGLN(ctx, gln)
	if err != nil {
		return 0, err
	}
	return identity.ID, nil
}

func (w *Worker) handleSupplyChange(ctx context.Context, msg *domain.InboxMessage, env *market.Envelope, process market.BusinessProcess) error {
	identityID, err := w.identityFor(ctx, msg)
	if err != nil {
		return err
	}
	events, err := market.ExtractSupplyChange(env)
	if err != nil {
		return err
	}
	for i, ev := range events {
		if process == market.ProcessEndOfSupply {
			// End of supply closes the relationship like a move-out.
			ev.MoveOut = true
			if _, err := w.supplySvc.HandleMove(ctx, identityID, ev); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			continue
		}
		if _, err := w.supplySvc.HandleSupplyChange(ctx, identityID, ev); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func (w *Worker) handleMove(ctx context.Context, msg *domain.InboxMessage, env *market.Envelope) error {
	identityID, err := w.identityFor(ctx, msg)
	if err != nil {
		return err
	}
	events, err := market.ExtractMove(env)
	if err != nil {
		return err
	}
	for i, ev := range events {
		if _, err := w.supplySvc.HandleMove(ctx, identityID, ev); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func (w *Worker) handleMasterData(ctx context.Context, env *market.Envelope) error {
	changes, err := market.ExtractMasterData(env)
	if err != nil {
		return err
	}
	for i, change := range changes {
		if _, err := w.mpSvc.ApplyMasterData(ctx, change); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func (w *Worker) handleMeteredData(ctx context.Context, msg *domain.InboxMessage, env *market.Envelope) error {
	deliveries, err := market.ExtractMeteredData(env)
	if err != nil {
		return err
	}

	reason := env.BusinessReason()
	ingested := make([]string, 0, len(deliveries))
	for i, series := range deliveries {
		stored, err := w.timeSeriesSvc.Ingest(ctx, msg.MessageID, reason, series)
		if err != nil {
			if errors.Is(err, tsdomain.ErrUnknownMeteringPoint) {
				ctxlogger.WithContext(ctx, w.log).Warn("metered data for unknown metering point dropped",
					zap.String("gsrn", series.GSRN.String()),
					zap.String("message_id", msg.MessageID),
				)
				continue
			}
			return fmt.Errorf("series %d: %w", i, err)
		}
		ingested = append(ingested, stored.TransactionID)
	}

	if len(ingested) == 0 {
		return nil
	}
	return w.enqueueAcknowledgement(ctx, msg, ingested)
}

// enqueueAcknowledgement owes the hub a receipt for applied metered data.
func (w *Worker) enqueueAcknowledgement(ctx context.Context, msg *domain.InboxMessage, transactionIDs []string) error {
	if msg.SenderGLN == "" {
		ctxlogger.WithContext(ctx, w.log).Debug("acknowledgement suppressed, document has no sender",
			zap.String("message_id", msg.MessageID))
		return nil
	}

	senderGLN := msg.ReceiverGLN
	if senderGLN == "" {
		senderGLN = w.cfg.SupplierGLN
	}

	ackID := uuid.NewString()
	payload, err := market.NewAcknowledgementDocument(
		ackID,
		msg.MessageID,
		transactionIDs,
		market.GLN(senderGLN),
		market.GLN(msg.SenderGLN),
		w.clock.Now(),
	)
	if err != nil {
		return err
	}

	_, err = w.outboxSvc.Enqueue(ctx, outboxdomain.EnqueueInput{
		MessageID:       ackID,
		DocumentType:    "AcknowledgeMeasureData_MarketDocument",
		BusinessProcess: string(market.ProcessMeteredData),
		SenderGLN:       senderGLN,
		ReceiverGLN:     msg.SenderGLN,
		Payload:         payload,
	})
	return err
}

func (w *Worker) handleAggregatedData(ctx context.Context, msg *domain.InboxMessage, env *market.Envelope) error {
	series, err := market.ExtractAggregatedData(env)
	if err != nil {
		return err
	}
	for i, agg := range series {
		if _, err := w.wholesaleSvc.RecordAggregated(ctx, msg.MessageID, agg); err != nil {
			return fmt.Errorf("series %d: %w", i, err)
		}
	}
	return nil
}

func (w *Worker) handleWholesale(ctx context.Context, msg *domain.InboxMessage, env *market.Envelope) error {
	series, err := market.ExtractWholesale(env)
	if err != nil {
		return err
	}
	for i, ws := range series {
		if _, err := w.wholesaleSvc.RecordWholesale(ctx, msg.MessageID, ws); err != nil {
			return fmt.Errorf("series %d: %w", i, err)
		}
	}
	return nil
}

func (w *Worker) handlePriceInfo(ctx context.Context, env *market.Envelope, reason string) error {
	switch reason {
	case market.ReasonPriceSeries:
		updates, err := market.ExtractPriceSeries(env)
		if err != nil {
			return err
		}
		for i, update := range updates {
			if err := w.priceSvc.ReplacePricePoints(ctx, update); err != nil {
				if errors.Is(err, pricedomain.ErrUnknownCharge) {
					ctxlogger.WithContext(ctx, w.log).Warn("price series for unknown charge dropped",
						zap.String("charge_id", update.ChargeID))
					continue
				}
				return fmt.Errorf("series %d: %w", i, err)
			}
		}
		return nil

	default:
		// D18 and price documents without an explicit reason carry charge
		// descriptions.
		infos, err := market.ExtractPriceInfo(env)
		if err != nil {
			return err
		}
		for i, info := range infos {
			if _, err := w.priceSvc.UpsertPriceInfo(ctx, info); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		return nil
	}
}

func (w *Worker) handlePriceLink(ctx context.Context, env *market.Envelope) error {
	changes, err := market.ExtractPriceLinks(env)
	if err != nil {
		return err
	}
	for i, change := range changes {
		if err := w.priceSvc.UpsertLink(ctx, change); err != nil {
			if errors.Is(err, pricedomain.ErrUnknownCharge) || errors.Is(err, pricedomain.ErrUnknownGSRN) {
				ctxlogger.WithContext(ctx, w.log).Warn("price link dropped, reference unknown",
					zap.String("charge_id", change.ChargeID),
					zap.Error(err),
				)
				continue
			}
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// skipSentinels are data-absence outcomes: the referenced entity is not
// (or no longer) ours. Messages hitting them are dropped, not retried.
var skipSentinels = []error{
	customerdomain.ErrIdentityNotFound,
	supplydomain.ErrNoActiveSupply,
	mpdomain.ErrNotFound,
}

func isSkip(err error) bool {
	for _, sentinel := range skipSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// permanentSentinels can never succeed on retry and the document itself is
// the problem: record the reason and move on.
var permanentSentinels = []error{
	market.ErrUnclassified,
	errNoHandler,
}

func isPermanent(err error) bool {
	for _, sentinel := range permanentSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
