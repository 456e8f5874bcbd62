package service

import (
	"context"
	"errors"
	"testing"

	"hoctuthien/internal/infrastructure/cache"
	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"
	"hoctuthien/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingSyncer struct{ calls int }

func (f *failingSyncer) ForceSync(_ context.Context, campaignID int64) (SyncReport, error) {
	f.calls++
	return SyncReport{CampaignID: campaignID}, errors.New("connection reset")
}

func newPaymentService(e *engine) (*PaymentService, *cache.MemoryTTLCache) {
	cooldown := cache.NewMemoryTTLCache(1024 * 1024)
	return NewPaymentService(e.db, e.scheduler, cooldown, e.cfg.Business, zap.NewNop()), cooldown
}

func TestCreateActivationPayment(t *testing.T) {
	e := newEngine(t)
	svc, _ := newPaymentService(e)
	ctx := context.Background()
	campaign := testutil.CreateCampaign(t, e.db, "0123456789")
	user := testutil.CreateUser(t, e.db, model.UserStatusUnverified)

	got, err := svc.CreateActivationPayment(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, got.PaymentCode, 6)
	assert.Equal(t, int64(10000), got.Amount)
	assert.Equal(t, model.RequestTypeActivation, got.RequestType)
	assert.Equal(t, model.RequestStatusPending, got.Status)
	assert.Equal(t, "0123456789", got.AccountNo)
	assert.Equal(t, "HOCTUTHIEN "+got.PaymentCode, got.TransferNote)
	assert.Contains(t, got.QRLink, "/MB-0123456789-compact.png?")
	assert.Contains(t, got.QRLink, "addInfo=HOCTUTHIEN+"+got.PaymentCode)
	assert.Contains(t, got.QRLink, "amount=10000")

	var stored model.PaymentRequest
	require.NoError(t, e.db.First(&stored, "payment_code = ?", got.PaymentCode).Error)
	assert.Equal(t, user.ID, stored.UserID)
	assert.Equal(t, campaign.ID, stored.TargetCampaignID)
	assert.Nil(t, stored.BookingID)
}

func TestCreateActivationPayment_Rejections(t *testing.T) {
	e := newEngine(t)
	svc, _ := newPaymentService(e)
	ctx := context.Background()

	unverified := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	_, err := svc.CreateActivationPayment(ctx, unverified.ID)
	assert.ErrorIs(t, err, repository.ErrNoActiveCampaign)

	testutil.CreateCampaign(t, e.db, "1000")
	active := testutil.CreateUser(t, e.db, model.UserStatusActive)
	_, err = svc.CreateActivationPayment(ctx, active.ID)
	assert.ErrorIs(t, err, ErrAlreadyActivated)

	_, err = svc.CreateActivationPayment(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestCreateSessionPayment(t *testing.T) {
	e := newEngine(t)
	svc, _ := newPaymentService(e)
	ctx := context.Background()
	testutil.CreateCampaign(t, e.db, "1000")
	mentee := testutil.CreateUser(t, e.db, model.UserStatusActive)
	booking := testutil.CreateBooking(t, e.db, mentee, 150000)

	first, err := svc.CreateSessionPayment(ctx, mentee.ID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), first.Amount)
	assert.Equal(t, model.RequestTypeSessionPayment, first.RequestType)

	again, err := svc.CreateSessionPayment(ctx, mentee.ID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, first.RequestID, again.RequestID)
	assert.Equal(t, first.PaymentCode, again.PaymentCode)

	var count int64
	require.NoError(t, e.db.Model(&model.PaymentRequest{}).Where("booking_id = ?", booking.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateSessionPayment_Rejections(t *testing.T) {
	e := newEngine(t)
	svc, _ := newPaymentService(e)
	ctx := context.Background()
	testutil.CreateCampaign(t, e.db, "1000")
	mentee := testutil.CreateUser(t, e.db, model.UserStatusActive)
	stranger := testutil.CreateUser(t, e.db, model.UserStatusActive)
	booking := testutil.CreateBooking(t, e.db, mentee, 150000)

	_, err := svc.CreateSessionPayment(ctx, stranger.ID, booking.ID)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	_, err = svc.CreateSessionPayment(ctx, mentee.ID, uuid.New())
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	require.NoError(t, e.db.Model(booking).Update("status", model.BookingStatusPaid).Error)
	_, err = svc.CreateSessionPayment(ctx, mentee.ID, booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotPayable)
}

func TestCheckPaymentStatus_ForcedSyncSettles(t *testing.T) {
	e := newEngine(t)
	svc, cooldown := newPaymentService(e)
	ctx := context.Background()
	campaign := testutil.CreateCampaign(t, e.db, "1000")
	user := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	testutil.CreatePaymentRequest(t, e.db, user, campaign, "QWERTY", 10000)

	e.fetcher.set(credit("900001", 10000, "HOCTUTHIEN QWERTY"))

	got := svc.CheckPaymentStatus(ctx, user.ID, "QWERTY")
	assert.Equal(t, CheckSuccess, got.Status)
	assert.Equal(t, 1, e.fetcher.callCount())

	active, err := cooldown.Exists(ctx, "check_spam_"+user.ID.String())
	require.NoError(t, err)
	assert.True(t, active)

	// settled requests answer without touching the feed, even inside the cooldown
	got = svc.CheckPaymentStatus(ctx, user.ID, "QWERTY")
	assert.Equal(t, CheckSuccess, got.Status)
	assert.Equal(t, 1, e.fetcher.callCount())
}

func TestCheckPaymentStatus_PendingThenThrottled(t *testing.T) {
	e := newEngine(t)
	svc, _ := newPaymentService(e)
	ctx := context.Background()
	campaign := testutil.CreateCampaign(t, e.db, "1000")
	user := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	testutil.CreatePaymentRequest(t, e.db, user, campaign, "QWERTY", 10000)

	got := svc.CheckPaymentStatus(ctx, user.ID, "QWERTY")
	assert.Equal(t, CheckPending, got.Status)
	assert.Equal(t, 1, e.fetcher.callCount())

	got = svc.CheckPaymentStatus(ctx, user.ID, "QWERTY")
	assert.Equal(t, CheckWaiting, got.Status)
	assert.Equal(t, 30, got.RetryAfter)
	assert.Equal(t, 1, e.fetcher.callCount())
}

func TestCheckPaymentStatus_FeedDownStaysPending(t *testing.T) {
	e := newEngine(t)
	svc, _ := newPaymentService(e)
	campaign := testutil.CreateCampaign(t, e.db, "1000")
	user := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	testutil.CreatePaymentRequest(t, e.db, user, campaign, "QWERTY", 10000)
	e.fetcher.err = errors.New("timeout")

	got := svc.CheckPaymentStatus(context.Background(), user.ID, "QWERTY")
	assert.Equal(t, CheckPending, got.Status)
}

func TestCheckPaymentStatus_NotFound(t *testing.T) {
	e := newEngine(t)
	svc, _ := newPaymentService(e)
	campaign := testutil.CreateCampaign(t, e.db, "1000")
	owner := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	other := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	testutil.CreatePaymentRequest(t, e.db, owner, campaign, "QWERTY", 10000)

	got := svc.CheckPaymentStatus(context.Background(), other.ID, "QWERTY")
	assert.Equal(t, CheckNotFound, got.Status)

	got = svc.CheckPaymentStatus(context.Background(), owner.ID, "NOSUCH")
	assert.Equal(t, CheckNotFound, got.Status)
	assert.Zero(t, e.fetcher.callCount())
}

func TestCheckPaymentStatus_Expired(t *testing.T) {
	e := newEngine(t)
	svc, _ := newPaymentService(e)
	campaign := testutil.CreateCampaign(t, e.db, "1000")
	user := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	testutil.CreatePaymentRequest(t, e.db, user, campaign, "QWERTY", 10000,
		testutil.WithStatus(model.RequestStatusExpired))

	got := svc.CheckPaymentStatus(context.Background(), user.ID, "QWERTY")
	assert.Equal(t, CheckExpired, got.Status)
	assert.Zero(t, e.fetcher.callCount())
}

func TestCheckPaymentStatus_SyncFailureIsGeneric(t *testing.T) {
	e := newEngine(t)
	syncer := &failingSyncer{}
	cooldown := cache.NewMemoryTTLCache(1024 * 1024)
	svc := NewPaymentService(e.db, syncer, cooldown, e.cfg.Business, zap.NewNop())
	ctx := context.Background()
	campaign := testutil.CreateCampaign(t, e.db, "1000")
	user := testutil.CreateUser(t, e.db, model.UserStatusUnverified)
	testutil.CreatePaymentRequest(t, e.db, user, campaign, "QWERTY", 10000)

	got := svc.CheckPaymentStatus(ctx, user.ID, "QWERTY")
	assert.Equal(t, CheckError, got.Status)
	assert.NotContains(t, got.Message, "connection reset")
	assert.Equal(t, 1, syncer.calls)

	// a failed check does not start the cooldown
	got = svc.CheckPaymentStatus(ctx, user.ID, "QWERTY")
	assert.Equal(t, CheckError, got.Status)
	assert.Equal(t, 2, syncer.calls)
}
