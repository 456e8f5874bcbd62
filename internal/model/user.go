package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserStatusUnverified = "UNVERIFIED"
	UserStatusActive     = "ACTIVE"
	UserStatusLocked     = "LOCKED"
)

// User only carries what reconciliation touches. Profile and credentials live in the auth service.
type User struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName  string    `gorm:"type:varchar(255)" json:"full_name"`
	Status    string    `gorm:"type:varchar(20);not null;default:UNVERIFIED" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}
