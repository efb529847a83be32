// Package datahub talks to the market message hub: peeking and dequeuing
// the inbound queue and posting outbound documents.
package datahub

import "context"

// SendStatus is the dispatch verdict for one outbound document.
type SendStatus string

const (
	// SendAccepted means the hub took the document; done.
	SendAccepted SendStatus = "Accepted"
	// SendRejected means the hub refused it for content reasons; retrying
	// the same bytes cannot succeed.
	SendRejected SendStatus = "Rejected"
	// SendTransientFailure means delivery failed for reasons unrelated to
	// the document; retry later.
	SendTransientFailure SendStatus = "TransientFailure"
)

// InboundMessage is one queued document as peeked from the hub.
type InboundMessage struct {
	MessageID string
	Payload   []byte
}

// OutboundMessage is one document to post.
type OutboundMessage struct {
	MessageID       string
	DocumentType    string
	BusinessProcess string
	SenderGLN       string
	ReceiverGLN     string
	Payload         []byte
}

// SendResult carries the verdict and the hub's response body.
type SendResult struct {
	Status   SendStatus
	Response string
}

// Transport is the hub wire protocol. Peek returns nil when the queue is
// empty; Dequeue removes an already-peeked message.
type Transport interface {
	Peek(ctx context.Context) (*InboundMessage, error)
	Dequeue(ctx context.Context, messageID string) error
	Send(ctx context.Context, msg OutboundMessage) (SendResult, error)
}
