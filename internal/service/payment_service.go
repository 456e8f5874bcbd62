package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hoctuthien/internal/config"
	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"
	"hoctuthien/pkg/paycode"
	"hoctuthien/pkg/vietqr"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAlreadyActivated  = errors.New("account is already active")
	ErrBookingNotPayable = errors.New("booking cannot be paid")
)

const codeAttempts = 5

// Outcomes of CheckPaymentStatus.
const (
	CheckSuccess  = "SUCCESS"
	CheckPending  = "PENDING"
	CheckWaiting  = "WAITING"
	CheckNotFound = "NOT_FOUND"
	CheckExpired  = "EXPIRED"
	CheckError    = "ERROR"
)

// PaymentInstructions is what the payer needs to make the transfer.
type PaymentInstructions struct {
	RequestID    uuid.UUID `json:"request_id"`
	PaymentCode  string    `json:"payment_code"`
	RequestType  string    `json:"request_type"`
	Amount       int64     `json:"amount"`
	Status       string    `json:"status"`
	CampaignName string    `json:"campaign_name"`
	BankID       string    `json:"bank_id"`
	AccountNo    string    `json:"account_no"`
	TransferNote string    `json:"transfer_note"`
	QRLink       string    `json:"qr_link"`
}

type CheckResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	PaymentCode string `json:"payment_code,omitempty"`
	RetryAfter  int    `json:"retry_after,omitempty"` // seconds, WAITING only
}

type PaymentService struct {
	requestRepo  *repository.PaymentRequestRepository
	campaignRepo *repository.CampaignRepository
	userRepo     *repository.UserRepository
	bookingRepo  *repository.BookingRepository
	syncer       ForceSyncer
	cooldown     CooldownCache
	cfg          config.BusinessConfig
	logger       *zap.Logger
}

func NewPaymentService(db *gorm.DB, syncer ForceSyncer, cooldown CooldownCache, cfg config.BusinessConfig, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		requestRepo:  repository.NewPaymentRequestRepository(db),
		campaignRepo: repository.NewCampaignRepository(db),
		userRepo:     repository.NewUserRepository(db),
		bookingRepo:  repository.NewBookingRepository(db),
		syncer:       syncer,
		cooldown:     cooldown,
		cfg:          cfg,
		logger:       logger.Named("PaymentService"),
	}
}

// CreateActivationPayment opens an ACTIVATION request for an account that is not yet ACTIVE.
func (s *PaymentService) CreateActivationPayment(ctx context.Context, userID uuid.UUID) (*PaymentInstructions, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == model.UserStatusActive {
		return nil, ErrAlreadyActivated
	}

	campaign, err := s.campaignRepo.FirstActive(ctx)
	if err != nil {
		return nil, err
	}

	req, err := s.createRequest(ctx, &model.PaymentRequest{
		UserID:           userID,
		TargetCampaignID: campaign.ID,
		Amount:           s.cfg.ActivationAmount,
		RequestType:      model.RequestTypeActivation,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("activation payment created",
		zap.Stringer("user_id", userID),
		zap.String("payment_code", req.PaymentCode),
		zap.Int64("campaign_id", campaign.ID))
	return s.instructions(req, campaign), nil
}

// CreateSessionPayment opens a SESSION_PAYMENT request for a CONFIRMED booking of the caller. An
// open request for the same booking is returned instead of creating a second one.
func (s *PaymentService) CreateSessionPayment(ctx context.Context, userID, bookingID uuid.UUID) (*PaymentInstructions, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.MenteeID != userID {
		return nil, repository.ErrBookingNotFound
	}
	if booking.Status != model.BookingStatusConfirmed || booking.Price <= 0 {
		return nil, ErrBookingNotPayable
	}

	existing, err := s.requestRepo.GetPendingByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		campaign, err := s.campaignRepo.GetByID(ctx, existing.TargetCampaignID)
		if err != nil {
			return nil, err
		}
		return s.instructions(existing, campaign), nil
	}

	campaign, err := s.campaignRepo.FirstActive(ctx)
	if err != nil {
		return nil, err
	}

	req, err := s.createRequest(ctx, &model.PaymentRequest{
		UserID:           userID,
		TargetCampaignID: campaign.ID,
		BookingID:        &bookingID,
		Amount:           booking.Price,
		RequestType:      model.RequestTypeSessionPayment,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session payment created",
		zap.Stringer("user_id", userID),
		zap.Stringer("booking_id", bookingID),
		zap.String("payment_code", req.PaymentCode),
		zap.Int64("amount", req.Amount))
	return s.instructions(req, campaign), nil
}

func (s *PaymentService) createRequest(ctx context.Context, req *model.PaymentRequest) (*model.PaymentRequest, error) {
	req.Status = model.RequestStatusPending
	for attempt := 1; attempt <= codeAttempts; attempt++ {
		code, err := paycode.Generate()
		if err != nil {
			return nil, err
		}
		req.ID = uuid.New()
		req.PaymentCode = code

		err = s.requestRepo.Create(ctx, nil, req)
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, repository.ErrDuplicatePaymentCode) {
			return nil, fmt.Errorf("create payment request: %w", err)
		}
		s.logger.Debug("payment code collision", zap.String("payment_code", code), zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("create payment request: %w", repository.ErrDuplicatePaymentCode)
}

func (s *PaymentService) instructions(req *model.PaymentRequest, campaign *model.CharityCampaign) *PaymentInstructions {
	note := s.cfg.TransferNotePrefix + " " + req.PaymentCode
	return &PaymentInstructions{
		RequestID:    req.ID,
		PaymentCode:  req.PaymentCode,
		RequestType:  req.RequestType,
		Amount:       req.Amount,
		Status:       req.Status,
		CampaignName: campaign.Name,
		BankID:       campaign.BankID,
		AccountNo:    campaign.AccountNumber,
		TransferNote: note,
		QRLink:       vietqr.BuildLink(s.cfg.QRBaseURL, campaign.BankID, campaign.AccountNumber, req.Amount, note),
	}
}

// CheckPaymentStatus answers "has my transfer arrived?". A PENDING request triggers a forced sync
// of its campaign, at most once per cooldown window per user.
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, userID uuid.UUID, code string) CheckResult {
	req, err := s.requestRepo.GetByCodeAndUser(ctx, code, userID)
	if errors.Is(err, repository.ErrPaymentRequestNotFound) {
		return CheckResult{Status: CheckNotFound, Message: "Payment request not found"}
	}
	if err != nil {
		s.logger.Error("load payment request", zap.String("payment_code", code), zap.Error(err))
		return CheckResult{Status: CheckError, Message: "Could not check payment status, please try again later"}
	}

	if done, ok := settledResult(req); ok {
		return done
	}

	key := cooldownKey(userID)
	if s.cooldown != nil {
		active, err := s.cooldown.Exists(ctx, key)
		if err != nil {
			s.logger.Warn("cooldown read failed", zap.String("key", key), zap.Error(err))
		}
		if active {
			return CheckResult{
				Status:      CheckWaiting,
				Message:     "Please wait before checking again",
				PaymentCode: req.PaymentCode,
				RetryAfter:  int(s.cfg.CheckCooldown() / time.Second),
			}
		}
	}

	report, err := s.syncer.ForceSync(ctx, req.TargetCampaignID)
	if err != nil {
		s.logger.Error("forced sync failed",
			zap.String("payment_code", code), zap.Int64("campaign_id", req.TargetCampaignID), zap.Error(err))
		return CheckResult{Status: CheckError, Message: "Could not check payment status, please try again later"}
	}

	if s.cooldown != nil && s.cfg.CheckCooldown() > 0 {
		if err := s.cooldown.SetWithTTL(ctx, key, s.cfg.CheckCooldown()); err != nil {
			s.logger.Warn("cooldown write failed", zap.String("key", key), zap.Error(err))
		}
	}

	req, err = s.requestRepo.GetByID(ctx, req.ID)
	if err != nil {
		s.logger.Error("reload payment request", zap.String("payment_code", code), zap.Error(err))
		return CheckResult{Status: CheckError, Message: "Could not check payment status, please try again later"}
	}

	if done, ok := settledResult(req); ok {
		return done
	}

	s.logger.Debug("payment still pending",
		zap.String("payment_code", code),
		zap.Bool("feed_unavailable", report.FeedUnavailable),
		zap.Int("fetched", report.Fetched))
	return CheckResult{
		Status:      CheckPending,
		Message:     "Transfer not received yet",
		PaymentCode: req.PaymentCode,
	}
}

func settledResult(req *model.PaymentRequest) (CheckResult, bool) {
	switch req.Status {
	case model.RequestStatusSuccess:
		return CheckResult{Status: CheckSuccess, Message: "Payment received", PaymentCode: req.PaymentCode}, true
	case model.RequestStatusExpired:
		return CheckResult{Status: CheckExpired, Message: "Payment request has expired", PaymentCode: req.PaymentCode}, true
	}
	return CheckResult{}, false
}

func cooldownKey(userID uuid.UUID) string {
	return "check_spam_" + userID.String()
}
