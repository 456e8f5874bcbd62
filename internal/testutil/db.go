// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"hoctuthien/internal/infrastructure/database"
	"hoctuthien/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated, private in-memory SQLite database.
//
// The pool is capped at one connection: SQLite serialises writers anyway, and concurrent
// tests then exercise the status-gated updates instead of "database is locked" errors.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func CreateCampaign(t testing.TB, db *gorm.DB, accountNo string) *model.CharityCampaign {
	t.Helper()
	c := &model.CharityCampaign{
		Name:           "Campaign " + accountNo,
		AccountNumber:  accountNo,
		BankID:         "MB",
		APIURLTemplate: model.DefaultFeedURLTemplate,
		IsActive:       true,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func CreateUser(t testing.TB, db *gorm.DB, status string) *model.User {
	t.Helper()
	id := uuid.New()
	u := &model.User{
		ID:       id,
		Email:    id.String() + "@example.com",
		FullName: "Test User",
		Status:   status,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateBooking(t testing.TB, db *gorm.DB, mentee *model.User, price int64) *model.Booking {
	t.Helper()
	b := &model.Booking{
		ID:       uuid.New(),
		MenteeID: mentee.ID,
		MentorID: uuid.New(),
		Price:    price,
		Status:   model.BookingStatusConfirmed,
	}
	require.NoError(t, db.Create(b).Error)
	return b
}

// PaymentRequestOption tweaks a fixture request before insert.
type PaymentRequestOption func(r *model.PaymentRequest)

func WithStatus(status string) PaymentRequestOption {
	return func(r *model.PaymentRequest) { r.Status = status }
}

func WithCreatedAt(at time.Time) PaymentRequestOption {
	return func(r *model.PaymentRequest) { r.CreatedAt = at.UTC() }
}

func WithBooking(b *model.Booking) PaymentRequestOption {
	return func(r *model.PaymentRequest) {
		r.BookingID = &b.ID
		r.RequestType = model.RequestTypeSessionPayment
	}
}

func CreatePaymentRequest(
	t testing.TB, db *gorm.DB, user *model.User, campaign *model.CharityCampaign,
	code string, amount int64, opts ...PaymentRequestOption,
) *model.PaymentRequest {
	t.Helper()
	r := &model.PaymentRequest{
		ID:               uuid.New(),
		UserID:           user.ID,
		TargetCampaignID: campaign.ID,
		Amount:           amount,
		PaymentCode:      code,
		RequestType:      model.RequestTypeActivation,
		Status:           model.RequestStatusPending,
	}
	for _, opt := range opts {
		opt(r)
	}
	require.NoError(t, db.Create(r).Error)
	return r
}
