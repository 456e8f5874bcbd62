package job

import (
	"context"
	"errors"
	"time"

	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentExpiryJob moves PENDING requests older than maxAge to EXPIRED. The move is gated on
// status, so a request settled in the meantime is left alone.
type PaymentExpiryJob struct {
	requestRepo *repository.PaymentRequestRepository
	maxAge      time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
	logger      *zap.Logger
}

func NewPaymentExpiryJob(db *gorm.DB, maxAge time.Duration, logger *zap.Logger) *PaymentExpiryJob {
	return &PaymentExpiryJob{
		requestRepo: repository.NewPaymentRequestRepository(db),
		maxAge:      maxAge,
		now:         time.Now,
		stopCh:      make(chan struct{}),
		interval:    time.Minute,
		batchSize:   100,
		logger:      logger.Named("PaymentExpiryJob"),
	}
}

func (j *PaymentExpiryJob) Start(ctx context.Context) {
	j.logger.Info("payment expiry job started", zap.Duration("max_age", j.maxAge))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			j.logger.Info("payment expiry job stopped")
			return
		case <-ticker.C:
			j.expireStaleRequests(ctx)
		}
	}
}

func (j *PaymentExpiryJob) Stop() {
	close(j.stopCh)
}

func (j *PaymentExpiryJob) expireStaleRequests(ctx context.Context) int {
	requests, err := j.requestRepo.GetExpiredPending(ctx, j.now().Add(-j.maxAge), j.batchSize)
	if err != nil {
		j.logger.Error("load stale requests", zap.Error(err))
		return 0
	}

	expired := 0
	for _, req := range requests {
		err := j.requestRepo.UpdateStatus(ctx, nil, req.ID, model.RequestStatusPending, model.RequestStatusExpired)
		if errors.Is(err, repository.ErrRequestStatusConflict) {
			continue
		}
		if err != nil {
			j.logger.Error("expire request", zap.String("payment_code", req.PaymentCode), zap.Error(err))
			continue
		}
		expired++
		j.logger.Info("payment request expired",
			zap.String("payment_code", req.PaymentCode),
			zap.Stringer("user_id", req.UserID),
			zap.Int64("amount", req.Amount))
	}
	return expired
}
