package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestDistributedLock_UnlockOnlyByOwner(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	a := NewDistributedLock(client, "k", "owner-a", time.Minute)
	b := NewDistributedLock(client, "k", "owner-b", time.Minute)

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Unlock(ctx))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, a.Unlock(ctx))
	assert.False(t, mr.Exists("k"))
}

func TestDistributedLock_LockGivesUp(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	holder := NewDistributedLock(client, "k", "holder", time.Minute)
	ok, err := holder.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	waiter := NewDistributedLock(client, "k", "waiter", time.Minute)
	err = waiter.Lock(ctx, time.Millisecond, 3)
	assert.ErrorIs(t, err, ErrLockFailed)
}

func TestCampaignLocker(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	locker := NewCampaignLocker(client, 30*time.Second)

	release, ok, err := locker.TryAcquire(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("sync:lock:campaign:7"))

	_, ok, err = locker.TryAcquire(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	// other campaigns are independent
	releaseOther, ok, err := locker.TryAcquire(ctx, 8)
	require.NoError(t, err)
	assert.True(t, ok)
	releaseOther()

	release()
	assert.False(t, mr.Exists("sync:lock:campaign:7"))

	release, err = locker.Acquire(ctx, 7)
	require.NoError(t, err)
	release()
}
