package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionTypeCredit = "CREDIT"
	TransactionTypeDebit  = "DEBIT"
)

// ExternalTransaction is one incoming transfer as reported by the aggregator feed.
//
// TransactionID is the aggregator's id and the idempotency key: a second poll returning the same id
// never creates another row. IsProcessed only goes false -> true, together with PaymentRequestID.
type ExternalTransaction struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID    string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"transaction_id"`
	CampaignID       int64      `gorm:"index;not null" json:"campaign_id"`
	TransactionDate  *time.Time `json:"transaction_date"` // nil when the feed timestamp could not be parsed
	Amount           int64      `gorm:"not null" json:"amount"`
	Description      string     `gorm:"type:text" json:"description"`
	PaymentRequestID *uuid.UUID `gorm:"type:char(36);uniqueIndex" json:"payment_request_id,omitempty"`
	IsProcessed      bool       `gorm:"not null;default:false;index" json:"is_processed"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ExternalTransaction) TableName() string {
	return "external_transaction"
}
