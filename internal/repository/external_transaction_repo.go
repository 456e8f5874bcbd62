package repository

import (
	"context"
	"errors"
	"time"

	"hoctuthien/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExternalTransactionRepository struct {
	db *gorm.DB
}

func NewExternalTransactionRepository(db *gorm.DB) *ExternalTransactionRepository {
	return &ExternalTransactionRepository{db: db}
}

// CreateIfAbsent inserts trans unless a row with the same aggregator transaction_id exists.
// The existing row is returned untouched with created=false. The insert is a single
// INSERT .. ON CONFLICT DO NOTHING, so concurrent pollers see created=true at most once.
func (r *ExternalTransactionRepository) CreateIfAbsent(ctx context.Context, trans *model.ExternalTransaction) (*model.ExternalTransaction, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(trans)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return trans, true, nil
	}

	existing, err := r.GetByTransactionID(ctx, trans.TransactionID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ExternalTransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.ExternalTransaction, error) {
	var trans model.ExternalTransaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// MarkProcessed links the transaction to the settled request. It only succeeds while the row is
// still unprocessed; the link is permanent afterwards.
func (r *ExternalTransactionRepository) MarkProcessed(ctx context.Context, tx *gorm.DB, id int64, requestID uuid.UUID) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.ExternalTransaction{}).
		Where("id = ? AND is_processed = ?", id, false).
		Updates(map[string]interface{}{
			"payment_request_id": requestID,
			"is_processed":       true,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTransactionProcessed
	}
	return nil
}

// ListUnprocessedSince pages through unprocessed rows created at or after since, in id order.
// Pass the last id of the previous page as afterID, 0 for the first page.
func (r *ExternalTransactionRepository) ListUnprocessedSince(ctx context.Context, since time.Time, afterID int64, limit int) ([]*model.ExternalTransaction, error) {
	var transactions []*model.ExternalTransaction
	err := r.db.WithContext(ctx).
		Where("is_processed = ? AND created_at >= ? AND id > ?", false, since.UTC(), afterID).
		Order("id ASC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}
