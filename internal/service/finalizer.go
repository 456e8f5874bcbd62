package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hoctuthien/internal/metrics"
	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"
	"hoctuthien/pkg/idgen"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FinalizeOutcome int

const (
	// Finalized: this call settled the request and applied the side effect.
	Finalized FinalizeOutcome = iota
	// AlreadySettled: the request had left PENDING before this call; nothing changed.
	AlreadySettled
	// TransactionConsumed: the transaction had already settled some request; nothing changed.
	TransactionConsumed
	// NotMatched: no PENDING request fits the transaction.
	NotMatched
)

func (o FinalizeOutcome) String() string {
	switch o {
	case Finalized:
		return "FINALIZED"
	case AlreadySettled:
		return "ALREADY_SETTLED"
	case TransactionConsumed:
		return "TRANSACTION_CONSUMED"
	case NotMatched:
		return "NOT_MATCHED"
	default:
		return "UNKNOWN"
	}
}

// PaymentFinalizer settles a matched request in one database transaction:
//
//  1. request PENDING -> SUCCESS, conditional on status (the exactly-once gate)
//  2. transaction linked to the request and marked processed, conditional on is_processed
//  3. ACTIVATION activates the user, SESSION_PAYMENT marks the booking PAID
//  4. a payment.succeeded message is queued in the outbox
//
// If another finalizer won the race, step 1 or 2 affects no row and everything rolls back.
type PaymentFinalizer struct {
	db              *gorm.DB
	requestRepo     *repository.PaymentRequestRepository
	transactionRepo *repository.ExternalTransactionRepository
	userRepo        *repository.UserRepository
	bookingRepo     *repository.BookingRepository
	outboxRepo      *repository.OutboxRepository
	topic           string
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewPaymentFinalizer(db *gorm.DB, topic string, m *metrics.Metrics, logger *zap.Logger) *PaymentFinalizer {
	return &PaymentFinalizer{
		db:              db,
		requestRepo:     repository.NewPaymentRequestRepository(db),
		transactionRepo: repository.NewExternalTransactionRepository(db),
		userRepo:        repository.NewUserRepository(db),
		bookingRepo:     repository.NewBookingRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		topic:           topic,
		metrics:         m,
		logger:          logger.Named("PaymentFinalizer"),
	}
}

func (f *PaymentFinalizer) Finalize(ctx context.Context, req *model.PaymentRequest, trans *model.ExternalTransaction) (FinalizeOutcome, error) {
	finalizedAt := time.Now().UTC()
	var bookingWarning error

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := f.requestRepo.UpdateStatus(ctx, tx, req.ID, model.RequestStatusPending, model.RequestStatusSuccess); err != nil {
			return err
		}

		if err := f.transactionRepo.MarkProcessed(ctx, tx, trans.ID, req.ID); err != nil {
			return err
		}

		switch req.RequestType {
		case model.RequestTypeActivation:
			if err := f.userRepo.Activate(ctx, tx, req.UserID); err != nil {
				return fmt.Errorf("activate user %s: %w", req.UserID, err)
			}
		case model.RequestTypeSessionPayment:
			if req.BookingID != nil {
				err := f.bookingRepo.MarkPaid(ctx, tx, *req.BookingID)
				if errors.Is(err, repository.ErrBookingStatusInvalid) || errors.Is(err, repository.ErrBookingNotFound) {
					// booking cancelled or gone: the request still settles
					bookingWarning = err
				} else if err != nil {
					return fmt.Errorf("mark booking %s paid: %w", *req.BookingID, err)
				}
			}
		}

		payload, err := json.Marshal(model.PaymentSucceededEvent{
			EventNo:       idgen.GenerateEventNo(),
			RequestID:     req.ID,
			PaymentCode:   req.PaymentCode,
			RequestType:   req.RequestType,
			UserID:        req.UserID,
			BookingID:     req.BookingID,
			CampaignID:    req.TargetCampaignID,
			Amount:        req.Amount,
			TransactionID: trans.TransactionID,
			FinalizedAt:   finalizedAt.Format(time.RFC3339),
		})
		if err != nil {
			return err
		}

		return f.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
			MessageKey: req.PaymentCode,
			Topic:      f.topic,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		})
	})

	switch {
	case errors.Is(err, repository.ErrRequestStatusConflict):
		f.logger.Info("request already settled",
			zap.String("payment_code", req.PaymentCode),
			zap.String("transaction_id", trans.TransactionID))
		return AlreadySettled, nil
	case errors.Is(err, repository.ErrTransactionProcessed):
		f.logger.Info("transaction already consumed",
			zap.String("payment_code", req.PaymentCode),
			zap.String("transaction_id", trans.TransactionID))
		return TransactionConsumed, nil
	case err != nil:
		return 0, fmt.Errorf("finalize %s: %w", req.PaymentCode, err)
	}

	if bookingWarning != nil {
		f.logger.Warn("payment settled but booking not updated",
			zap.String("payment_code", req.PaymentCode),
			zap.Stringer("booking_id", req.BookingID),
			zap.Error(bookingWarning))
	}

	req.Status = model.RequestStatusSuccess
	req.PaidAt = &finalizedAt
	trans.IsProcessed = true
	trans.PaymentRequestID = &req.ID

	f.metrics.FinalizedPayments.WithLabelValues(req.RequestType).Inc()
	f.logger.Info("payment finalized",
		zap.String("payment_code", req.PaymentCode),
		zap.String("request_type", req.RequestType),
		zap.Int64("amount", req.Amount),
		zap.String("transaction_id", trans.TransactionID))

	return Finalized, nil
}
