package service

import (
	"context"
	"time"

	"hoctuthien/internal/feed"
)

// FeedFetcher is the aggregator transaction feed.
type FeedFetcher interface {
	FetchTransactions(ctx context.Context, feedURL string, q feed.Query) ([]feed.Transaction, error)
}

// CooldownCache is a TTL flag store. Reads and writes are best-effort.
type CooldownCache interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetWithTTL(ctx context.Context, key string, ttl time.Duration) error
}

// CampaignLocker serialises syncs of one campaign across instances. The returned release func is
// always safe to call.
type CampaignLocker interface {
	TryAcquire(ctx context.Context, campaignID int64) (release func(), ok bool, err error)
	Acquire(ctx context.Context, campaignID int64) (release func(), err error)
}

// ForceSyncer runs an immediate sync of one campaign.
type ForceSyncer interface {
	ForceSync(ctx context.Context, campaignID int64) (SyncReport, error)
}
