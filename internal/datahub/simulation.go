package datahub

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// simTransport stands in when hub credentials are absent. Sends are
// acknowledged locally and the inbound queue is always empty; documents
// enter through the dev ingestion endpoint instead.
type simTransport struct {
	log *zap.Logger
}

func newSimTransport(log *zap.Logger) *simTransport {
	return &simTransport{log: log.Named("datahub.simulation")}
}

func (t *simTransport) Peek(context.Context) (*InboundMessage, error) {
	return nil, nil
}

func (t *simTransport) Dequeue(context.Context, string) error {
	return nil
}

func (t *simTransport) Send(_ context.Context, msg OutboundMessage) (SendResult, error) {
	receipt := uuid.NewString()
	t.log.Info("simulated hub accepted document",
		zap.String("message_id", msg.MessageID),
		zap.String("document_type", msg.DocumentType),
		zap.String("receipt", receipt),
	)
	return SendResult{Status: SendAccepted, Response: `{"receipt":"` + receipt + `"}`}, nil
}
