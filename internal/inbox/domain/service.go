package domain

import (
	"context"
	"errors"
)

var (
	ErrDuplicateMessage = errors.New("inbox_message_duplicate")
	ErrMissingMessageID = errors.New("inbox_message_id_required")
	ErrNotFound         = errors.New("inbox_message_not_found")
)

// Service accepts raw market documents into the inbox. Routing happens
// asynchronously.
type Service interface {
	// Enqueue stores a raw document keyed by its message id. A message id
	// seen before returns ErrDuplicateMessage and changes nothing.
	Enqueue(ctx context.Context, raw []byte) (*InboxMessage, error)

	GetByMessageID(ctx context.Context, messageID string) (*InboxMessage, error)
}
