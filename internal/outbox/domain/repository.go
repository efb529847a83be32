package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, msg *OutboxMessage) error
	Update(ctx context.Context, db *gorm.DB, msg *OutboxMessage) error

	// FindDue returns unsent messages under the attempt cap whose
	// scheduled-for time has passed, oldest first. Exponential backoff is
	// the caller's concern.
	FindDue(ctx context.Context, db *gorm.DB, now time.Time, limit, maxAttempts int) ([]OutboxMessage, error)

	CountPending(ctx context.Context, db *gorm.DB, maxAttempts int) (int64, error)
}
