package job

import (
	"context"
	"time"

	"hoctuthien/internal/metrics"
	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"
	"hoctuthien/internal/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Settler matches and finalizes one stored transaction.
type Settler interface {
	Settle(ctx context.Context, trans *model.ExternalTransaction) (service.FinalizeOutcome, error)
}

// RematchJob retries matching for stored transactions that settled nothing, e.g. a transfer that
// arrived before its request was created.
type RematchJob struct {
	transactionRepo *repository.ExternalTransactionRepository
	settler         Settler
	lookback        time.Duration
	now             func() time.Time
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewRematchJob(db *gorm.DB, settler Settler, lookback, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *RematchJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RematchJob{
		transactionRepo: repository.NewExternalTransactionRepository(db),
		settler:         settler,
		lookback:        lookback,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		interval:        interval,
		batchSize:       200,
		metrics:         m,
		logger:          logger.Named("RematchJob"),
	}
}

func (j *RematchJob) Start(ctx context.Context) {
	j.logger.Info("rematch job started", zap.Duration("lookback", j.lookback))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			j.logger.Info("rematch job stopped")
			return
		case <-ticker.C:
			j.rematch(ctx)
		}
	}
}

func (j *RematchJob) Stop() {
	close(j.stopCh)
}

// rematch walks the whole lookback window page by page, so rows that never match cannot hide
// newer ones behind the page size.
func (j *RematchJob) rematch(ctx context.Context) int {
	j.metrics.SyncCycles.WithLabelValues("rematch").Inc()

	since := j.now().Add(-j.lookback)
	finalized := 0
	var afterID int64
	for ctx.Err() == nil {
		transactions, err := j.transactionRepo.ListUnprocessedSince(ctx, since, afterID, j.batchSize)
		if err != nil {
			j.logger.Error("load unprocessed transactions", zap.Int64("after_id", afterID), zap.Error(err))
			break
		}

		for _, trans := range transactions {
			afterID = trans.ID
			outcome, err := j.settler.Settle(ctx, trans)
			if err != nil {
				continue
			}
			if outcome == service.Finalized {
				finalized++
				j.logger.Info("late transaction settled", zap.String("transaction_id", trans.TransactionID))
			}
		}

		if len(transactions) < j.batchSize {
			break
		}
	}
	return finalized
}
