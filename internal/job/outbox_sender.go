package job

import (
	"context"
	"time"

	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Publisher delivers one outbox message to the broker.
type Publisher interface {
	Publish(topic, key, value string) error
}

// OutboxSender relays payment.succeeded events written by the finalizer.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  Publisher
	maxRetry   int
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
	logger     *zap.Logger
}

func NewOutboxSender(db *gorm.DB, publisher Publisher, maxRetry int, logger *zap.Logger) *OutboxSender {
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		maxRetry:   maxRetry,
		stopCh:     make(chan struct{}),
		interval:   time.Second,
		batchSize:  100,
		logger:     logger.Named("OutboxSender"),
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.logger.Info("outbox sender started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context done, outbox sender exiting")
			return
		case <-s.stopCh:
			s.logger.Info("outbox sender stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("load pending messages", zap.Error(err))
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.publisher.Publish(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if err := s.outboxRepo.MarkSent(ctx, msg.ID); err != nil {
			s.logger.Error("mark message sent", zap.Int64("id", msg.ID), zap.Error(err))
			return
		}
		s.logger.Debug("message sent",
			zap.Int64("id", msg.ID), zap.String("topic", msg.Topic), zap.String("key", msg.MessageKey))
		return
	}

	s.logger.Warn("publish failed", zap.Int64("id", msg.ID), zap.Int("retry_count", msg.RetryCount), zap.Error(err))

	exhausted, err := s.outboxRepo.RecordFailure(ctx, msg, s.maxRetry)
	if err != nil {
		s.logger.Error("record publish failure", zap.Int64("id", msg.ID), zap.Error(err))
		return
	}
	if exhausted {
		s.logger.Error("message exceeded max retries, marked FAILED",
			zap.Int64("id", msg.ID), zap.String("key", msg.MessageKey))
	}
}
