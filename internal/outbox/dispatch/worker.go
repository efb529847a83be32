// Package dispatch drains the outbox to the hub with retry backoff.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	"github.com/nordvolt/voltra/internal/datahub"
	obsmetrics "github.com/nordvolt/voltra/internal/observability/metrics"
	"github.com/nordvolt/voltra/internal/outbox/domain"
)

// maxBackoff caps the retry delay so a long outage does not push waits
// past operational patience.
const maxBackoff = 30 * time.Minute

type Params struct {
	fx.In

	DB        *gorm.DB
	Cfg       config.Config
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	Transport datahub.Transport
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Worker struct {
	db        *gorm.DB
	cfg       config.Config
	log       *zap.Logger
	clock     clock.Clock
	repo      domain.Repository
	transport datahub.Transport
	metrics   *obsmetrics.Metrics
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:        p.DB,
		cfg:       p.Cfg,
		log:       p.Log.Named("outbox.dispatch"),
		clock:     p.Clock,
		repo:      p.Repo,
		transport: p.Transport,
		metrics:   p.Metrics,
	}
}

func (w *Worker) Name() string { return "outbox_dispatch" }

func (w *Worker) Interval() time.Duration { return w.cfg.OutboxPollInterval }

func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.clock.Now()
	msgs, err := w.repo.FindDue(ctx, w.db, now, w.cfg.OutboxBatchSize, w.cfg.OutboxMaxRetries)
	if err != nil {
		return err
	}

	if pending, err := w.repo.CountPending(ctx, w.db, w.cfg.OutboxMaxRetries); err == nil {
		obsmetrics.Worker().SetBacklog(obsmetrics.BacklogResourceOutbox, int(pending))
	}

	var errs []error
	for _, msg := range msgs {
		if !w.backoffElapsed(msg, now) {
			obsmetrics.Worker().IncBatchDeferred(w.Name(), "backoff")
			continue
		}
		if err := w.dispatch(ctx, msg, now); err != nil {
			errs = append(errs, fmt.Errorf("message %s: %w", msg.MessageID, err))
		}
	}
	return errors.Join(errs...)
}

// backoffElapsed gates retries at base_delay doubled per prior attempt.
func (w *Worker) backoffElapsed(msg domain.OutboxMessage, now time.Time) bool {
	if msg.Attempts == 0 || msg.LastAttemptAt == nil {
		return true
	}
	delay := w.cfg.OutboxRetryBaseDelay
	for i := 1; i < msg.Attempts; i++ {
		delay *= 2
		if delay >= maxBackoff {
			break
		}
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return !now.Before(msg.LastAttemptAt.Add(delay))
}

func (w *Worker) dispatch(ctx context.Context, msg domain.OutboxMessage, now time.Time) error {
	result, err := w.transport.Send(ctx, datahub.OutboundMessage{
		MessageID:       msg.MessageID,
		DocumentType:    msg.DocumentType,
		BusinessProcess: msg.BusinessProcess,
		SenderGLN:       msg.SenderGLN,
		ReceiverGLN:     msg.ReceiverGLN,
		Payload:         msg.Payload,
	})
	if err != nil {
		result = datahub.SendResult{Status: datahub.SendTransientFailure, Response: err.Error()}
	}

	attemptAt := now
	msg.LastAttemptAt = &attemptAt

	switch result.Status {
	case datahub.SendAccepted:
		msg.IsSent = true
		msg.SentAt = &attemptAt
		msg.Response = result.Response
		msg.LastError = ""
		w.metrics.RecordOutboxDispatch(ctx, "accepted")
		w.log.Info("outbound document delivered",
			zap.String("message_id", msg.MessageID),
			zap.String("document_type", msg.DocumentType),
		)

	case datahub.SendRejected:
		// Content rejections never succeed on retry; park the row where
		// FindDue stops seeing it.
		msg.Attempts = w.cfg.OutboxMaxRetries
		msg.LastError = "rejected by hub: " + result.Response
		w.metrics.RecordOutboxDispatch(ctx, "rejected")
		obsmetrics.Worker().IncPipelineError(obsmetrics.PipelineStageDispatch, errors.New("hub rejection"))
		w.log.Error("outbound document rejected",
			zap.String("message_id", msg.MessageID),
			zap.String("document_type", msg.DocumentType),
			zap.String("response", result.Response),
		)

	default:
		msg.Attempts++
		msg.LastError = result.Response
		w.metrics.RecordOutboxDispatch(ctx, "transient_failure")
		w.log.Warn("outbound dispatch failed, will retry",
			zap.String("message_id", msg.MessageID),
			zap.Int("attempts", msg.Attempts),
			zap.String("error", result.Response),
		)
	}

	return w.repo.Update(ctx, w.db, &msg)
}
