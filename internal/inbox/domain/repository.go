package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, msg *InboxMessage) error
	Update(ctx context.Context, db *gorm.DB, msg *InboxMessage) error
	FindByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*InboxMessage, error)

	// FindUnprocessed returns unprocessed messages still under the attempt
	// cap, oldest reception first.
	FindUnprocessed(ctx context.Context, db *gorm.DB, limit, maxAttempts int) ([]InboxMessage, error)

	// CountPending counts messages FindUnprocessed would still consider.
	CountPending(ctx context.Context, db *gorm.DB, maxAttempts int) (int64, error)
}
