package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/outbox/domain"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Create(ctx context.Context, db *gorm.DB, msg *domain.OutboxMessage) error {
	return db.WithContext(ctx).Create(msg).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, msg *domain.OutboxMessage) error {
	msg.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(msg).Error
}

func (r *repo) FindDue(ctx context.Context, db *gorm.DB, now time.Time, limit, maxAttempts int) ([]domain.OutboxMessage, error) {
	var msgs []domain.OutboxMessage
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM outbox_messages
		     WHERE is_sent = ? AND attempts < ?
		       AND (scheduled_for IS NULL OR scheduled_for <= ?)
		     ORDER BY created_at ASC, id ASC
		     LIMIT ?`,
			false, maxAttempts, now, limit).
		Scan(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *repo) CountPending(ctx context.Context, db *gorm.DB, maxAttempts int) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM outbox_messages WHERE is_sent = ? AND attempts < ?`,
			false, maxAttempts).
		Scan(&count).Error
	return count, err
}
