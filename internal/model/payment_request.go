package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RequestStatusPending = "PENDING"
	RequestStatusSuccess = "SUCCESS"
	RequestStatusExpired = "EXPIRED"
)

const (
	RequestTypeActivation     = "ACTIVATION"
	RequestTypeSessionPayment = "SESSION_PAYMENT"
)

// Only PENDING can move, and only once.
var ValidStatusTransitions = map[string][]string{
	RequestStatusPending: {RequestStatusSuccess, RequestStatusExpired},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// PaymentRequest asks a user to transfer Amount with PaymentCode in the note to TargetCampaignID.
//
// PaymentCode is globally unique and never changes after creation. BookingID is only set for
// SESSION_PAYMENT requests.
type PaymentRequest struct {
	ID               uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:char(36);index;not null" json:"user_id"`
	TargetCampaignID int64      `gorm:"index;not null" json:"target_campaign_id"`
	BookingID        *uuid.UUID `gorm:"type:char(36);index" json:"booking_id,omitempty"`
	Amount           int64      `gorm:"not null" json:"amount"` // VND
	PaymentCode      string     `gorm:"type:varchar(8);uniqueIndex;not null" json:"payment_code"`
	RequestType      string     `gorm:"type:varchar(20);not null" json:"request_type"`
	Status           string     `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentRequest) TableName() string {
	return "payment_request"
}
