package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingMessageID = errors.New("outbox_message_id_required")
	ErrMissingReceiver  = errors.New("outbox_receiver_required")
)

// EnqueueInput carries one document to hand to the hub.
type EnqueueInput struct {
	MessageID       string
	DocumentType    string
	BusinessProcess string
	SenderGLN       string
	ReceiverGLN     string
	Payload         []byte

	// ScheduledFor delays the first dispatch attempt when set.
	ScheduledFor *time.Time
}

// Service accepts outbound documents. The dispatch worker drains them.
type Service interface {
	Enqueue(ctx context.Context, in EnqueueInput) (*OutboxMessage, error)
}
