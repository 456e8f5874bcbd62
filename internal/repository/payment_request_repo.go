package repository

import (
	"context"
	"errors"
	"time"

	"hoctuthien/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRequestRepository struct {
	db *gorm.DB
}

func NewPaymentRequestRepository(db *gorm.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{db: db}
}

// Create returns ErrDuplicatePaymentCode when the code collides with an existing request.
func (r *PaymentRequestRepository) Create(ctx context.Context, tx *gorm.DB, req *model.PaymentRequest) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(req).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicatePaymentCode
	}
	return err
}

func (r *PaymentRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentRequest, error) {
	return r.first(ctx, r.db.Where("id = ?", id))
}

func (r *PaymentRequestRepository) GetByCode(ctx context.Context, code string) (*model.PaymentRequest, error) {
	return r.first(ctx, r.db.Where("payment_code = ?", code))
}

// GetByCodeAndUser only finds requests owned by userID.
func (r *PaymentRequestRepository) GetByCodeAndUser(ctx context.Context, code string, userID uuid.UUID) (*model.PaymentRequest, error) {
	return r.first(ctx, r.db.Where("payment_code = ? AND user_id = ?", code, userID))
}

// FindPendingMatch resolves a code seen in a transfer note. Amount and campaign must match exactly.
func (r *PaymentRequestRepository) FindPendingMatch(ctx context.Context, code string, amount int64, campaignID int64) (*model.PaymentRequest, error) {
	return r.first(ctx, r.db.Where(
		"payment_code = ? AND status = ? AND amount = ? AND target_campaign_id = ?",
		code, model.RequestStatusPending, amount, campaignID,
	))
}

// GetPendingByBooking returns nil, nil when the booking has no open request.
func (r *PaymentRequestRepository) GetPendingByBooking(ctx context.Context, bookingID uuid.UUID) (*model.PaymentRequest, error) {
	req, err := r.first(ctx, r.db.Where("booking_id = ? AND status = ?", bookingID, model.RequestStatusPending))
	if errors.Is(err, ErrPaymentRequestNotFound) {
		return nil, nil
	}
	return req, err
}

func (r *PaymentRequestRepository) first(ctx context.Context, query *gorm.DB) (*model.PaymentRequest, error) {
	var req model.PaymentRequest
	err := query.WithContext(ctx).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// UpdateStatus is a compare-and-set on status. Exactly one of several concurrent callers moving the
// same request out of fromStatus succeeds; the others get ErrRequestStatusConflict.
func (r *PaymentRequestRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrRequestStatusConflict
	}

	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}

	if toStatus == model.RequestStatusSuccess {
		now := time.Now().UTC()
		updates["paid_at"] = &now
	}

	result := tx.WithContext(ctx).
		Model(&model.PaymentRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrRequestStatusConflict
	}

	return nil
}

// CampaignIDsNeedingSync lists campaigns with a PENDING request or any request created at or after since.
func (r *PaymentRequestRepository) CampaignIDsNeedingSync(ctx context.Context, since time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.PaymentRequest{}).
		Where("status = ? OR created_at >= ?", model.RequestStatusPending, since.UTC()).
		Distinct().
		Order("target_campaign_id ASC").
		Pluck("target_campaign_id", &ids).Error
	return ids, err
}

func (r *PaymentRequestRepository) GetExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.PaymentRequest, error) {
	var reqs []*model.PaymentRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.RequestStatusPending, createdBefore.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}
