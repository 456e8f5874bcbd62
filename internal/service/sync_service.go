package service

import (
	"context"
	"errors"
	"time"

	"hoctuthien/internal/config"
	"hoctuthien/internal/feed"
	"hoctuthien/internal/metrics"
	"hoctuthien/internal/model"
	"hoctuthien/pkg/vntime"

	"go.uber.org/zap"
)

// SyncReport summarises one poll cycle of one campaign.
type SyncReport struct {
	CampaignID      int64  `json:"campaign_id"`
	CampaignName    string `json:"campaign_name"`
	Skipped         bool   `json:"skipped,omitempty"` // another sync held the campaign lock
	FeedUnavailable bool   `json:"feed_unavailable,omitempty"`
	FeedError       string `json:"feed_error,omitempty"`
	Fetched         int    `json:"fetched"`
	Ignored         int    `json:"ignored"`
	Duplicates      int    `json:"duplicates"`
	Ingested        int    `json:"ingested"`
	Finalized       int    `json:"finalized"`
	Errors          int    `json:"errors"`
}

// CampaignSyncer runs fetch -> ingest -> match -> finalize for one campaign.
type CampaignSyncer struct {
	fetcher         FeedFetcher
	ingestor        *TransactionIngestor
	matcher         *CodeMatcher
	finalizer       *PaymentFinalizer
	defaultTemplate string
	pageSize        int
	now             func() time.Time
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewCampaignSyncer(
	fetcher FeedFetcher,
	ingestor *TransactionIngestor,
	matcher *CodeMatcher,
	finalizer *PaymentFinalizer,
	feedCfg config.FeedConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CampaignSyncer {
	pageSize := feedCfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return &CampaignSyncer{
		fetcher:         fetcher,
		ingestor:        ingestor,
		matcher:         matcher,
		finalizer:       finalizer,
		defaultTemplate: feedCfg.DefaultURLTemplate,
		pageSize:        pageSize,
		now:             time.Now,
		metrics:         m,
		logger:          logger.Named("CampaignSyncer"),
	}
}

// Sync never fails: feed errors mark the report FeedUnavailable and the campaign is simply polled
// again next cycle. Per-transaction database errors are logged and counted.
func (s *CampaignSyncer) Sync(ctx context.Context, campaign *model.CharityCampaign) SyncReport {
	start := time.Now()
	defer func() { s.metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	report := SyncReport{CampaignID: campaign.ID, CampaignName: campaign.Name}

	today := vntime.Date(s.now())
	query := feed.Query{
		FromDate:   today,
		ToDate:     today,
		PageNumber: 1,
		PageSize:   s.pageSize,
	}

	txns, err := s.fetcher.FetchTransactions(ctx, campaign.FeedURL(s.defaultTemplate), query)
	if err != nil {
		s.metrics.FeedFailures.Inc()
		report.FeedUnavailable = true
		report.FeedError = err.Error()
		if !errors.Is(err, feed.ErrFeedUnavailable) {
			s.logger.Error("unexpected feed error", zap.Int64("campaign_id", campaign.ID), zap.Error(err))
		} else {
			s.logger.Warn("feed unavailable, campaign retried next cycle",
				zap.Int64("campaign_id", campaign.ID),
				zap.String("campaign", campaign.Name),
				zap.Error(err))
		}
		return report
	}
	report.Fetched = len(txns)

	for _, raw := range txns {
		trans, created, err := s.ingestor.Ingest(ctx, raw, campaign)
		if err != nil {
			report.Errors++
			s.logger.Error("ingest failed",
				zap.Int64("campaign_id", campaign.ID),
				zap.String("transaction_id", string(raw.ID)),
				zap.Error(err))
			continue
		}
		if trans == nil {
			report.Ignored++
			continue
		}
		if !created {
			report.Duplicates++
			continue
		}
		report.Ingested++

		outcome, err := s.Settle(ctx, trans)
		if err != nil {
			report.Errors++
			continue
		}
		if outcome == Finalized {
			report.Finalized++
		}
	}

	s.logger.Info("campaign synced",
		zap.Int64("campaign_id", campaign.ID),
		zap.Int("fetched", report.Fetched),
		zap.Int("ingested", report.Ingested),
		zap.Int("finalized", report.Finalized))
	return report
}

// Settle matches one stored transaction and finalizes the request it pays for.
// Unmatched transactions stay unprocessed.
func (s *CampaignSyncer) Settle(ctx context.Context, trans *model.ExternalTransaction) (FinalizeOutcome, error) {
	req, err := s.matcher.Match(ctx, trans)
	if err != nil {
		s.logger.Error("match failed", zap.String("transaction_id", trans.TransactionID), zap.Error(err))
		return 0, err
	}
	if req == nil {
		return NotMatched, nil
	}

	outcome, err := s.finalizer.Finalize(ctx, req, trans)
	if err != nil {
		s.logger.Error("finalize failed",
			zap.String("transaction_id", trans.TransactionID),
			zap.String("payment_code", req.PaymentCode),
			zap.Error(err))
		return 0, err
	}
	return outcome, nil
}
