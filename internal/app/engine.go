// Package app wires the reconciliation engine from configuration. Both binaries share it.
package app

import (
	"time"

	"hoctuthien/internal/config"
	"hoctuthien/internal/feed"
	"hoctuthien/internal/infrastructure/cache"
	"hoctuthien/internal/infrastructure/lock"
	"hoctuthien/internal/metrics"
	"hoctuthien/internal/repository"
	"hoctuthien/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const memoryCooldownBytes = 8 * 1024 * 1024

type Engine struct {
	Syncer    *service.CampaignSyncer
	Scheduler *service.SyncScheduler
	Payments  *service.PaymentService
	Metrics   *metrics.Metrics
}

// NewEngine builds the services. rdb may be nil: syncs then run unlocked and the check cooldown
// falls back to the in-process cache.
func NewEngine(cfg *config.Config, db *gorm.DB, rdb *redis.Client, m *metrics.Metrics, logger *zap.Logger) *Engine {
	requestRepo := repository.NewPaymentRequestRepository(db)

	syncer := service.NewCampaignSyncer(
		feed.NewClient(cfg.Feed.Timeout()),
		service.NewTransactionIngestor(repository.NewExternalTransactionRepository(db), m, logger),
		service.NewCodeMatcher(requestRepo),
		service.NewPaymentFinalizer(db, cfg.Kafka.Topic.PaymentResult, m, logger),
		cfg.Feed,
		m,
		logger,
	)

	var locker service.CampaignLocker
	if rdb != nil {
		// a lock outlives one feed call plus matching
		locker = lock.NewCampaignLocker(rdb, cfg.Feed.Timeout()+30*time.Second)
	}

	scheduler := service.NewSyncScheduler(
		requestRepo,
		repository.NewCampaignRepository(db),
		syncer,
		locker,
		cfg.Business.SweepLookback(),
		m,
		logger,
	)

	var cooldown service.CooldownCache
	if rdb != nil && cfg.Business.CooldownBackend != "memory" {
		cooldown = cache.NewRedisTTLCache(rdb, "hoctuthien:")
	} else {
		cooldown = cache.NewMemoryTTLCache(memoryCooldownBytes)
	}

	payments := service.NewPaymentService(db, scheduler, cooldown, cfg.Business, logger)

	return &Engine{
		Syncer:    syncer,
		Scheduler: scheduler,
		Payments:  payments,
		Metrics:   m,
	}
}
