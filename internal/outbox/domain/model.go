package domain

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxMessage is one document owed to the hub. Rows survive until sent or
// dead-lettered so a crash between produce and dispatch loses nothing.
type OutboxMessage struct {
	ID              int64          `json:"id" gorm:"primaryKey"`
	MessageID       string         `json:"message_id" gorm:"type:text;not null;uniqueIndex:ux_outbox_message_id"`
	DocumentType    string         `json:"document_type" gorm:"type:text;not null"`
	BusinessProcess string         `json:"business_process" gorm:"type:text"`
	SenderGLN       string         `json:"sender_gln" gorm:"type:varchar(13);not null"`
	ReceiverGLN     string         `json:"receiver_gln" gorm:"type:varchar(13);not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	IsSent          bool           `json:"is_sent" gorm:"not null;default:false;index:ix_outbox_pending,priority:1"`
	Attempts        int            `json:"attempts" gorm:"not null;default:0"`
	LastError       string         `json:"last_error" gorm:"type:text"`
	LastAttemptAt   *time.Time     `json:"last_attempt_at,omitempty"`
	ScheduledFor    *time.Time     `json:"scheduled_for,omitempty"`
	Response        string         `json:"response" gorm:"type:text"`
	SentAt          *time.Time     `json:"sent_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_outbox_pending,priority:2"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OutboxMessage) TableName() string { return "outbox_messages" }
