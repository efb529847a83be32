package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	"github.com/nordvolt/voltra/internal/datahub"
	"github.com/nordvolt/voltra/internal/outbox/domain"
	"github.com/nordvolt/voltra/internal/outbox/repository"
	"github.com/nordvolt/voltra/internal/outbox/service"
)

type stubTransport struct {
	result datahub.SendResult
	err    error
	sends  []datahub.OutboundMessage
}

func (s *stubTransport) Peek(context.Context) (*datahub.InboundMessage, error) { return nil, nil }

func (s *stubTransport) Dequeue(context.Context, string) error { return nil }

func (s *stubTransport) Send(_ context.Context, msg datahub.OutboundMessage) (datahub.SendResult, error) {
	s.sends = append(s.sends, msg)
	if s.err != nil {
		return datahub.SendResult{}, s.err
	}
	return s.result, nil
}

type dispatchHarness struct {
	db     *gorm.DB
	svc    domain.Service
	worker *Worker
	clock  *clock.FakeClock
}

func newDispatchHarness(t *testing.T, name string, transport datahub.Transport) *dispatchHarness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.OutboxMessage{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC))

	cfg := config.Config{
		OutboxPollInterval:   time.Second,
		OutboxBatchSize:      10,
		OutboxMaxRetries:     3,
		OutboxRetryBaseDelay: time.Minute,
	}

	repo := repository.Provide()
	svc := service.New(service.Params{DB: db, Log: log, GenID: node, Repo: repo})
	if transport == nil {
		transport = datahub.NewTransport(cfg, log)
	}
	worker := NewWorker(Params{
		DB: db, Cfg: cfg, Log: log, Clock: clk, Repo: repo, Transport: transport,
	})

	return &dispatchHarness{db: db, svc: svc, worker: worker, clock: clk}
}

func (h *dispatchHarness) enqueue(t *testing.T, messageID string, scheduledFor *time.Time) {
	t.Helper()
	_, err := h.svc.Enqueue(context.Background(), domain.EnqueueInput{
		MessageID:       messageID,
		DocumentType:    "AcknowledgeMeasureData_MarketDocument",
		BusinessProcess: "BRS-021",
		SenderGLN:       "5790000701414",
		ReceiverGLN:     "5790001330552",
		Payload:         []byte(`{"mRID":{"value":"` + messageID + `"}}`),
		ScheduledFor:    scheduledFor,
	})
	require.NoError(t, err)
}

func (h *dispatchHarness) reload(t *testing.T, messageID string) *domain.OutboxMessage {
	t.Helper()
	var msg domain.OutboxMessage
	require.NoError(t, h.db.Where("message_id = ?", messageID).First(&msg).Error)
	return &msg
}

func TestRunOnceDeliversViaSimulatedHub(t *testing.T) {
	h := newDispatchHarness(t, "dispatch_sim", nil)
	h.enqueue(t, "ack-sim-1", nil)
	h.enqueue(t, "ack-sim-2", nil)

	require.NoError(t, h.worker.RunOnce(context.Background()))

	for _, id := range []string{"ack-sim-1", "ack-sim-2"} {
		msg := h.reload(t, id)
		require.True(t, msg.IsSent)
		require.NotNil(t, msg.SentAt)
		require.True(t, msg.SentAt.Equal(h.clock.Now()))
		require.Contains(t, msg.Response, "receipt")
		require.Empty(t, msg.LastError)
	}
}

func TestRunOnceParksRejectedDocuments(t *testing.T) {
	transport := &stubTransport{result: datahub.SendResult{
		Status:   datahub.SendRejected,
		Response: "B2B-005: schema validation failed",
	}}
	h := newDispatchHarness(t, "dispatch_rejected", transport)
	h.enqueue(t, "ack-rej-1", nil)
	ctx := context.Background()

	require.NoError(t, h.worker.RunOnce(ctx))

	msg := h.reload(t, "ack-rej-1")
	require.False(t, msg.IsSent)
	require.Equal(t, 3, msg.Attempts)
	require.Contains(t, msg.LastError, "rejected by hub")
	require.Contains(t, msg.LastError, "B2B-005")

	// A rejection is final: the row must not come up for dispatch again.
	require.NoError(t, h.worker.RunOnce(ctx))
	require.Len(t, transport.sends, 1)
}

func TestRunOnceBacksOffTransientFailures(t *testing.T) {
	transport := &stubTransport{err: errors.New("connect: connection refused")}
	h := newDispatchHarness(t, "dispatch_backoff", transport)
	h.enqueue(t, "ack-retry-1", nil)
	ctx := context.Background()

	require.NoError(t, h.worker.RunOnce(ctx))
	msg := h.reload(t, "ack-retry-1")
	require.False(t, msg.IsSent)
	require.Equal(t, 1, msg.Attempts)
	require.Contains(t, msg.LastError, "connection refused")

	// Base delay has not elapsed yet.
	h.clock.Advance(30 * time.Second)
	require.NoError(t, h.worker.RunOnce(ctx))
	require.Len(t, transport.sends, 1)

	h.clock.Advance(30 * time.Second)
	require.NoError(t, h.worker.RunOnce(ctx))
	require.Len(t, transport.sends, 2)
	require.Equal(t, 2, h.reload(t, "ack-retry-1").Attempts)

	// Second retry waits twice the base delay.
	h.clock.Advance(time.Minute)
	require.NoError(t, h.worker.RunOnce(ctx))
	require.Len(t, transport.sends, 2)

	h.clock.Advance(time.Minute)
	require.NoError(t, h.worker.RunOnce(ctx))
	require.Len(t, transport.sends, 3)

	// Attempts exhausted: dead-lettered, no further traffic.
	h.clock.Advance(time.Hour)
	require.NoError(t, h.worker.RunOnce(ctx))
	require.Len(t, transport.sends, 3)
	msg = h.reload(t, "ack-retry-1")
	require.False(t, msg.IsSent)
	require.Equal(t, 3, msg.Attempts)
}

func TestRunOnceRecoversAfterTransientFailure(t *testing.T) {
	transport := &stubTransport{err: errors.New("connect: connection refused")}
	h := newDispatchHarness(t, "dispatch_recover", transport)
	h.enqueue(t, "ack-recover-1", nil)
	ctx := context.Background()

	require.NoError(t, h.worker.RunOnce(ctx))
	msg := h.reload(t, "ack-recover-1")
	require.False(t, msg.IsSent)
	require.Equal(t, 1, msg.Attempts)

	// The hub comes back before the retry fires.
	transport.err = nil
	transport.result = datahub.SendResult{Status: datahub.SendAccepted, Response: `{"status":"ok"}`}

	h.clock.Advance(time.Minute)
	require.NoError(t, h.worker.RunOnce(ctx))

	msg = h.reload(t, "ack-recover-1")
	require.True(t, msg.IsSent)
	require.Equal(t, 1, msg.Attempts)
	require.Equal(t, `{"status":"ok"}`, msg.Response)
	require.Empty(t, msg.LastError)
	require.NotNil(t, msg.SentAt)
	require.True(t, msg.SentAt.Equal(h.clock.Now()))
}

func TestRunOnceHonorsScheduledFor(t *testing.T) {
	transport := &stubTransport{result: datahub.SendResult{Status: datahub.SendAccepted}}
	h := newDispatchHarness(t, "dispatch_scheduled", transport)
	due := h.clock.Now().Add(time.Hour)
	h.enqueue(t, "ack-later-1", &due)
	ctx := context.Background()

	require.NoError(t, h.worker.RunOnce(ctx))
	require.Empty(t, transport.sends)
	require.False(t, h.reload(t, "ack-later-1").IsSent)

	h.clock.Advance(time.Hour)
	require.NoError(t, h.worker.RunOnce(ctx))
	require.Len(t, transport.sends, 1)
	require.True(t, h.reload(t, "ack-later-1").IsSent)
}
