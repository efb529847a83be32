package datahub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nordvolt/voltra/internal/config"
	inboxdomain "github.com/nordvolt/voltra/internal/inbox/domain"
	obsmetrics "github.com/nordvolt/voltra/internal/observability/metrics"
)

type FetcherParams struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Transport Transport
	Inbox     inboxdomain.Service
}

// Fetcher drains the hub queue into the inbox: peek, store, dequeue. A
// message is only dequeued once it is safely stored, so a crash in between
// redelivers rather than loses.
type Fetcher struct {
	cfg       config.Config
	log       *zap.Logger
	transport Transport
	inbox     inboxdomain.Service
}

func NewFetcher(p FetcherParams) *Fetcher {
	return &Fetcher{
		cfg:       p.Cfg,
		log:       p.Log.Named("datahub.fetcher"),
		transport: p.Transport,
		inbox:     p.Inbox,
	}
}

func (f *Fetcher) Name() string { return "hub_fetch" }

func (f *Fetcher) Interval() time.Duration { return f.cfg.InboxPollInterval }

func (f *Fetcher) RunOnce(ctx context.Context) error {
	for fetched := 0; fetched < f.cfg.InboxBatchSize; fetched++ {
		msg, err := f.transport.Peek(ctx)
		if err != nil {
			obsmetrics.Worker().IncPipelineError(obsmetrics.PipelineStageIngest, err)
			return fmt.Errorf("peek hub queue: %w", err)
		}
		if msg == nil {
			return nil
		}

		if _, err := f.inbox.Enqueue(ctx, msg.Payload); err != nil {
			if !errors.Is(err, inboxdomain.ErrDuplicateMessage) {
				obsmetrics.Worker().IncPipelineError(obsmetrics.PipelineStageIngest, err)
				return fmt.Errorf("store hub message %s: %w", msg.MessageID, err)
			}
			// Redelivery of something already stored: just clear it.
			f.log.Debug("hub redelivered stored message", zap.String("message_id", msg.MessageID))
		}

		if err := f.transport.Dequeue(ctx, msg.MessageID); err != nil {
			obsmetrics.Worker().IncPipelineError(obsmetrics.PipelineStageIngest, err)
			return fmt.Errorf("dequeue hub message %s: %w", msg.MessageID, err)
		}
	}
	return nil
}
