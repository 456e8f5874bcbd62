package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// PaymentSucceededEvent is the outbox payload written when a request is settled.
type PaymentSucceededEvent struct {
	EventNo       string     `json:"event_no"`
	RequestID     uuid.UUID  `json:"request_id"`
	PaymentCode   string     `json:"payment_code"`
	RequestType   string     `json:"request_type"`
	UserID        uuid.UUID  `json:"user_id"`
	BookingID     *uuid.UUID `json:"booking_id,omitempty"`
	CampaignID    int64      `json:"campaign_id"`
	Amount        int64      `json:"amount"`
	TransactionID string     `json:"transaction_id"`
	FinalizedAt   string     `json:"finalized_at"`
}
