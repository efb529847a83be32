package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/inbox/domain"
)

type repo struct{}

func Provide() domain.Repository { return &repo{} }

func (r *repo) Create(ctx context.Context, db *gorm.DB, msg *domain.InboxMessage) error {
	return db.WithContext(ctx).Create(msg).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, msg *domain.InboxMessage) error {
	msg.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(msg).Error
}

func (r *repo) FindByMessageID(ctx context.Context, db *gorm.DB, messageID string) (*domain.InboxMessage, error) {
	var msg domain.InboxMessage
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM inbox_messages WHERE message_id = ? LIMIT 1`, messageID).
		Scan(&msg).Error
	if err != nil {
		return nil, err
	}
	if msg.ID == 0 {
		return nil, nil
	}
	return &msg, nil
}

func (r *repo) FindUnprocessed(ctx context.Context, db *gorm.DB, limit, maxAttempts int) ([]domain.InboxMessage, error) {
	var msgs []domain.InboxMessage
	err := db.WithContext(ctx).
		Raw(`SELECT * FROM inbox_messages
		     WHERE is_processed = ? AND attempts < ?
		     ORDER BY received_at ASC, id ASC
		     LIMIT ?`,
			false, maxAttempts, limit).
		Scan(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *repo) CountPending(ctx context.Context, db *gorm.DB, maxAttempts int) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM inbox_messages WHERE is_processed = ? AND attempts < ?`,
			false, maxAttempts).
		Scan(&count).Error
	return count, err
}
