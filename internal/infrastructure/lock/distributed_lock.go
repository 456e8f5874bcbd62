package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// Redis lock: SET key owner NX EX ttl, released by a compare-and-delete script.
// ============================================================================
//
// Used to keep concurrent syncs of one campaign from hitting the aggregator twice.
// It is an optimisation only; double settlement is prevented by the status-gated
// update in the finalizer.
//
// ============================================================================

var ErrLockFailed = errors.New("acquire distributed lock failed")

const unlockScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // owner token, checked on release
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock is non-blocking.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock retries TryLock every retryInterval, at most maxRetries times.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock deletes the key only while we still own it; an expired lock taken over by
// another owner is left alone.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	_, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// Campaign sync locks
// ============================================================================

// CampaignLocker hands out one lock per campaign id.
type CampaignLocker struct {
	client     *redis.Client
	expiration time.Duration
	retry      time.Duration
	maxRetries int
}

// NewCampaignLocker: expiration should exceed one feed call plus matching.
func NewCampaignLocker(client *redis.Client, expiration time.Duration) *CampaignLocker {
	return &CampaignLocker{
		client:     client,
		expiration: expiration,
		retry:      200 * time.Millisecond,
		maxRetries: 25,
	}
}

func (c *CampaignLocker) newLock(campaignID int64) *DistributedLock {
	key := fmt.Sprintf("sync:lock:campaign:%d", campaignID)
	return NewDistributedLock(c.client, key, uuid.NewString(), c.expiration)
}

// TryAcquire returns ok=false without waiting when another sync holds the campaign.
func (c *CampaignLocker) TryAcquire(ctx context.Context, campaignID int64) (func(), bool, error) {
	l := c.newLock(campaignID)
	ok, err := l.TryLock(ctx)
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() { _ = l.Unlock(context.Background()) }, true, nil
}

// Acquire waits a bounded time for the campaign lock.
func (c *CampaignLocker) Acquire(ctx context.Context, campaignID int64) (func(), error) {
	l := c.newLock(campaignID)
	if err := l.Lock(ctx, c.retry, c.maxRetries); err != nil {
		return func() {}, err
	}
	return func() { _ = l.Unlock(context.Background()) }, nil
}
