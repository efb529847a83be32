package domain

import (
	"time"

	"gorm.io/datatypes"
)

// InboxMessage is one market document as received, kept verbatim so routing
// failures can be replayed and audited. The hub message id dedupes
// redeliveries.
type InboxMessage struct {
	ID              int64          `json:"id" gorm:"primaryKey"`
	MessageID       string         `json:"message_id" gorm:"type:text;not null;uniqueIndex:ux_inbox_message_id"`
	DocumentType    string         `json:"document_type" gorm:"type:text"`
	BusinessProcess string         `json:"business_process" gorm:"type:text;index:ix_inbox_process"`
	SenderGLN       string         `json:"sender_gln" gorm:"type:varchar(13)"`
	ReceiverGLN     string         `json:"receiver_gln" gorm:"type:varchar(13)"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null;index:ix_inbox_pending,priority:2"`
	IsProcessed     bool           `json:"is_processed" gorm:"not null;default:false;index:ix_inbox_pending,priority:1"`
	Attempts        int            `json:"attempts" gorm:"not null;default:0"`
	LastError       string         `json:"last_error" gorm:"type:text"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InboxMessage) TableName() string { return "inbox_messages" }
