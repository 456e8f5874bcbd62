package service

import (
	"context"
	"fmt"
	"time"

	"hoctuthien/internal/metrics"
	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"

	"go.uber.org/zap"
)

// SweepReport is the result of one smart sweep.
type SweepReport struct {
	StartedAt time.Time    `json:"started_at"`
	Campaigns []SyncReport `json:"campaigns"`
}

func (r *SweepReport) Finalized() int {
	n := 0
	for _, c := range r.Campaigns {
		n += c.Finalized
	}
	return n
}

// SyncScheduler decides which campaigns to poll and drives CampaignSyncer over them.
type SyncScheduler struct {
	requestRepo  *repository.PaymentRequestRepository
	campaignRepo *repository.CampaignRepository
	syncer       *CampaignSyncer
	locker       CampaignLocker // optional
	lookback     time.Duration
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewSyncScheduler(
	requestRepo *repository.PaymentRequestRepository,
	campaignRepo *repository.CampaignRepository,
	syncer *CampaignSyncer,
	locker CampaignLocker,
	lookback time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SyncScheduler {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &SyncScheduler{
		requestRepo:  requestRepo,
		campaignRepo: campaignRepo,
		syncer:       syncer,
		locker:       locker,
		lookback:     lookback,
		now:          time.Now,
		metrics:      m,
		logger:       logger.Named("SyncScheduler"),
	}
}

// CampaignsToSync returns every campaign with a PENDING request or a request created within the
// lookback window. Other campaigns are never polled.
func (s *SyncScheduler) CampaignsToSync(ctx context.Context) ([]*model.CharityCampaign, error) {
	ids, err := s.requestRepo.CampaignIDsNeedingSync(ctx, s.now().Add(-s.lookback))
	if err != nil {
		return nil, fmt.Errorf("select campaigns: %w", err)
	}
	return s.campaignRepo.ListByIDs(ctx, ids)
}

// SmartSweep syncs CampaignsToSync one after another. progress, when non-nil, receives one
// line per campaign.
func (s *SyncScheduler) SmartSweep(ctx context.Context, progress func(line string)) (*SweepReport, error) {
	report := &SweepReport{StartedAt: s.now()}

	campaigns, err := s.CampaignsToSync(ctx)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		emit(progress, "No campaign has pending or recent payment requests.")
		return report, nil
	}

	for _, campaign := range campaigns {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		emit(progress, fmt.Sprintf("Syncing: %s (%s)", campaign.Name, campaign.AccountNumber))

		result := s.sweepOne(ctx, campaign)
		report.Campaigns = append(report.Campaigns, result)

		switch {
		case result.Skipped:
			emit(progress, "  skipped, another sync is running")
		case result.FeedUnavailable:
			emit(progress, "  feed unavailable: "+result.FeedError)
		default:
			emit(progress, fmt.Sprintf("  fetched=%d new=%d finalized=%d",
				result.Fetched, result.Ingested, result.Finalized))
		}
	}
	return report, nil
}

func (s *SyncScheduler) sweepOne(ctx context.Context, campaign *model.CharityCampaign) SyncReport {
	s.metrics.SyncCycles.WithLabelValues("sweep").Inc()

	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx, campaign.ID)
		defer release()
		if err != nil {
			s.logger.Warn("campaign lock unavailable, syncing unlocked",
				zap.Int64("campaign_id", campaign.ID), zap.Error(err))
		} else if !ok {
			return SyncReport{CampaignID: campaign.ID, CampaignName: campaign.Name, Skipped: true}
		}
	}
	return s.syncer.Sync(ctx, campaign)
}

// ForceSync polls one campaign synchronously, for a user waiting on their payment. It waits a
// bounded time for a concurrent sync of the same campaign, then runs regardless.
func (s *SyncScheduler) ForceSync(ctx context.Context, campaignID int64) (SyncReport, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return SyncReport{CampaignID: campaignID}, err
	}

	s.metrics.SyncCycles.WithLabelValues("force").Inc()

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, campaign.ID)
		defer release()
		if err != nil {
			s.logger.Warn("campaign lock not acquired, forcing sync anyway",
				zap.Int64("campaign_id", campaign.ID), zap.Error(err))
		}
	}
	return s.syncer.Sync(ctx, campaign), nil
}

func emit(progress func(string), line string) {
	if progress != nil {
		progress(line)
	}
}
