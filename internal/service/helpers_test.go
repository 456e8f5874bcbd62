package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"hoctuthien/internal/config"
	"hoctuthien/internal/feed"
	"hoctuthien/internal/metrics"
	"hoctuthien/internal/repository"
	"hoctuthien/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fetchCall struct {
	URL   string
	Query feed.Query
}

// fakeFetcher serves the same transactions for every campaign unless byURL has an entry.
type fakeFetcher struct {
	mu    sync.Mutex
	txns  []feed.Transaction
	byURL map[string][]feed.Transaction
	err   error
	calls []fetchCall
}

func (f *fakeFetcher) FetchTransactions(_ context.Context, feedURL string, q feed.Query) ([]feed.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{URL: feedURL, Query: q})
	if f.err != nil {
		return nil, f.err
	}
	if txns, ok := f.byURL[feedURL]; ok {
		return txns, nil
	}
	return f.txns, nil
}

func (f *fakeFetcher) set(txns ...feed.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txns = txns
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func credit(id string, amount int64, narrative string) feed.Transaction {
	return feed.Transaction{
		ID:        feed.FlexString(id),
		Type:      "CREDIT",
		Amount:    decimal.NewFromInt(amount),
		Time:      "2025-11-25T23:22:00",
		Narrative: narrative,
	}
}

type engine struct {
	db        *gorm.DB
	fetcher   *fakeFetcher
	metrics   *metrics.Metrics
	finalizer *PaymentFinalizer
	syncer    *CampaignSyncer
	scheduler *SyncScheduler
	cfg       *config.Config
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.Default()
	logger := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	fetcher := &fakeFetcher{}

	finalizer := NewPaymentFinalizer(db, cfg.Kafka.Topic.PaymentResult, m, logger)
	syncer := NewCampaignSyncer(
		fetcher,
		NewTransactionIngestor(repository.NewExternalTransactionRepository(db), m, logger),
		NewCodeMatcher(repository.NewPaymentRequestRepository(db)),
		finalizer,
		cfg.Feed,
		m,
		logger,
	)
	syncer.now = func() time.Time { return time.Date(2025, 11, 25, 17, 0, 0, 0, time.UTC) }

	scheduler := NewSyncScheduler(
		repository.NewPaymentRequestRepository(db),
		repository.NewCampaignRepository(db),
		syncer,
		nil,
		cfg.Business.SweepLookback(),
		m,
		logger,
	)

	return &engine{
		db:        db,
		fetcher:   fetcher,
		metrics:   m,
		finalizer: finalizer,
		syncer:    syncer,
		scheduler: scheduler,
		cfg:       cfg,
	}
}
