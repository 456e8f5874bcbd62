package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hoctuthien/internal/feed"
	"hoctuthien/internal/infrastructure/lock"
	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"
	"hoctuthien/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocker struct {
	acquireErr error
	acquired   []int64
}

func (l *stubLocker) TryAcquire(_ context.Context, campaignID int64) (func(), bool, error) {
	l.acquired = append(l.acquired, campaignID)
	return func() {}, true, nil
}

func (l *stubLocker) Acquire(_ context.Context, campaignID int64) (func(), error) {
	l.acquired = append(l.acquired, campaignID)
	return func() {}, l.acquireErr
}

func TestSyncScheduler_SweepScope(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	threeDaysAgo := time.Now().Add(-72 * time.Hour)

	stalePending := testutil.CreateCampaign(t, e.db, "1000")
	testutil.CreatePaymentRequest(t, e.db, user, stalePending, "AAAAAA", 10000,
		testutil.WithCreatedAt(threeDaysAgo))

	idle := testutil.CreateCampaign(t, e.db, "2000")
	testutil.CreatePaymentRequest(t, e.db, user, idle, "BBBBBB", 10000,
		testutil.WithStatus(model.RequestStatusSuccess), testutil.WithCreatedAt(threeDaysAgo))

	recent := testutil.CreateCampaign(t, e.db, "3000")
	testutil.CreatePaymentRequest(t, e.db, user, recent, "CCCCCC", 10000,
		testutil.WithStatus(model.RequestStatusSuccess), testutil.WithCreatedAt(time.Now().Add(-time.Hour)))

	testutil.CreateCampaign(t, e.db, "4000")

	campaigns, err := e.scheduler.CampaignsToSync(ctx)
	require.NoError(t, err)
	ids := make([]int64, 0, len(campaigns))
	for _, c := range campaigns {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []int64{stalePending.ID, recent.ID}, ids)

	var lines []string
	report, err := e.scheduler.SmartSweep(ctx, func(line string) { lines = append(lines, line) })
	require.NoError(t, err)
	assert.Len(t, report.Campaigns, 2)
	assert.Equal(t, 2, e.fetcher.callCount())
	assert.Contains(t, lines, fmt.Sprintf("Syncing: %s (%s)", stalePending.Name, stalePending.AccountNumber))
	assert.Equal(t, 2.0, promtest.ToFloat64(e.metrics.SyncCycles.WithLabelValues("sweep")))
}

func TestSyncScheduler_SweepNothingToDo(t *testing.T) {
	e := newEngine(t)
	testutil.CreateCampaign(t, e.db, "1000")

	var lines []string
	report, err := e.scheduler.SmartSweep(context.Background(), func(line string) { lines = append(lines, line) })
	require.NoError(t, err)
	assert.Empty(t, report.Campaigns)
	assert.Zero(t, e.fetcher.callCount())
	assert.Len(t, lines, 1)
}

func TestSyncScheduler_SweepFinalizesAcrossCampaigns(t *testing.T) {
	e := newEngine(t)
	c1 := testutil.CreateCampaign(t, e.db, "1000")
	c2 := testutil.CreateCampaign(t, e.db, "2000")
	u1 := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	u2 := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	testutil.CreatePaymentRequest(t, e.db, u1, c1, "QWERTY", 10000)
	testutil.CreatePaymentRequest(t, e.db, u2, c2, "ASDFGH", 10000)

	e.fetcher.byURL = map[string][]feed.Transaction{
		c1.FeedURL(e.cfg.Feed.DefaultURLTemplate): {credit("c1-1", 10000, "HOCTUTHIEN QWERTY")},
		c2.FeedURL(e.cfg.Feed.DefaultURLTemplate): {credit("c2-1", 10000, "HOCTUTHIEN ASDFGH")},
	}

	report, err := e.scheduler.SmartSweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Finalized())

	var active int64
	require.NoError(t, e.db.Model(&model.User{}).Where("status = ?", model.UserStatusActive).Count(&active).Error)
	assert.Equal(t, int64(2), active)
}

func TestSyncScheduler_SweepSkipsLockedCampaign(t *testing.T) {
	e := newEngine(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	campaign := testutil.CreateCampaign(t, e.db, "1000")
	user := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	testutil.CreatePaymentRequest(t, e.db, user, campaign, "QWERTY", 10000)

	locker := lock.NewCampaignLocker(client, time.Minute)
	release, ok, err := locker.TryAcquire(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.True(t, ok)

	e.scheduler.locker = locker
	report, err := e.scheduler.SmartSweep(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Campaigns, 1)
	assert.True(t, report.Campaigns[0].Skipped)
	assert.Zero(t, e.fetcher.callCount())

	release()
	report, err = e.scheduler.SmartSweep(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Campaigns, 1)
	assert.False(t, report.Campaigns[0].Skipped)
	assert.Equal(t, 1, e.fetcher.callCount())
}

func TestSyncScheduler_ForceSync(t *testing.T) {
	e := newEngine(t)
	campaign := testutil.CreateCampaign(t, e.db, "1000")
	locker := &stubLocker{acquireErr: lock.ErrLockFailed}
	e.scheduler.locker = locker

	report, err := e.scheduler.ForceSync(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, campaign.ID, report.CampaignID)
	assert.Equal(t, []int64{campaign.ID}, locker.acquired)
	assert.Equal(t, 1, e.fetcher.callCount(), "a lock timeout must not block the forced sync")
	assert.Equal(t, 1.0, promtest.ToFloat64(e.metrics.SyncCycles.WithLabelValues("force")))
}

func TestSyncScheduler_ForceSyncUnknownCampaign(t *testing.T) {
	e := newEngine(t)

	_, err := e.scheduler.ForceSync(context.Background(), 4242)
	assert.True(t, errors.Is(err, repository.ErrCampaignNotFound))
	assert.Zero(t, e.fetcher.callCount())
}
