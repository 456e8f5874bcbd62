package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusPaid      = "PAID"
	BookingStatusCancelled = "CANCELLED"
)

type Booking struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	MenteeID  uuid.UUID `gorm:"type:char(36);index;not null" json:"mentee_id"`
	MentorID  uuid.UUID `gorm:"type:char(36);index;not null" json:"mentor_id"`
	Price     int64     `gorm:"not null" json:"price"` // VND
	Status    string    `gorm:"type:varchar(20);not null;default:CONFIRMED" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Booking) TableName() string {
	return "booking"
}
