package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"hoctuthien/internal/repository"
	"hoctuthien/internal/service"
	"hoctuthien/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService is the payer-facing side of the engine.
type PaymentService interface {
	CreateActivationPayment(ctx context.Context, userID uuid.UUID) (*service.PaymentInstructions, error)
	CreateSessionPayment(ctx context.Context, userID, bookingID uuid.UUID) (*service.PaymentInstructions, error)
	CheckPaymentStatus(ctx context.Context, userID uuid.UUID, code string) service.CheckResult
}

// SyncAdmin exposes the sweep to operators.
type SyncAdmin interface {
	SmartSweep(ctx context.Context, progress func(line string)) (*service.SweepReport, error)
}

type Handler struct {
	payments PaymentService
	sync     SyncAdmin
	logger   *zap.Logger
}

func NewHandler(payments PaymentService, sync SyncAdmin, logger *zap.Logger) *Handler {
	return &Handler{
		payments: payments,
		sync:     sync,
		logger:   logger.Named("Handler"),
	}
}

// CreateActivationPayment
// POST /api/v1/payment/activation
func (h *Handler) CreateActivationPayment(c *gin.Context) {
	userID := CurrentUserID(c)

	result, err := h.payments.CreateActivationPayment(c.Request.Context(), userID)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}
	response.Success(c, result)
}

type CreateSessionPaymentRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// CreateSessionPayment
// POST /api/v1/payment/session
func (h *Handler) CreateSessionPayment(c *gin.Context) {
	var req CreateSessionPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		response.ParamError(c, "booking_id must be a UUID")
		return
	}

	result, err := h.payments.CreateSessionPayment(c.Request.Context(), CurrentUserID(c), bookingID)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadyActivated):
		response.BusinessError(c, response.CodeAlreadyActivated, "account is already active")
	case errors.Is(err, repository.ErrNoActiveCampaign):
		response.BusinessError(c, response.CodeNoActiveCampaign, "no charity campaign is accepting payments")
	case errors.Is(err, repository.ErrBookingNotFound):
		response.WithStatus(c, http.StatusNotFound, response.CodeBookingNotFound, "booking not found", nil)
	case errors.Is(err, service.ErrBookingNotPayable):
		response.BusinessError(c, response.CodeBookingNotPayable, "booking is not awaiting payment")
	case errors.Is(err, repository.ErrUserNotFound):
		response.WithStatus(c, http.StatusNotFound, response.CodeNotFound, "user not found", nil)
	default:
		h.logger.Error("create payment failed", zap.Error(err))
		response.ServerError(c, "internal server error")
	}
}

// CheckPaymentStatus
// POST /api/v1/payment/:code/check
func (h *Handler) CheckPaymentStatus(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.ParamError(c, "payment code is required")
		return
	}

	result := h.payments.CheckPaymentStatus(c.Request.Context(), CurrentUserID(c), code)

	switch result.Status {
	case service.CheckNotFound:
		response.WithStatus(c, http.StatusNotFound, response.CodeNotFound, result.Message, result)
	case service.CheckWaiting:
		c.Header("Retry-After", strconv.Itoa(result.RetryAfter))
		response.WithStatus(c, http.StatusTooManyRequests, response.CodeTooManyChecks, result.Message, result)
	case service.CheckError:
		response.WithStatus(c, http.StatusInternalServerError, response.CodePaymentCheckFailed, result.Message, result)
	default:
		response.Success(c, result)
	}
}

// Sweep runs a smart sweep inline and returns the per-campaign reports.
// POST /api/v1/admin/sync/sweep
func (h *Handler) Sweep(c *gin.Context) {
	report, err := h.sync.SmartSweep(c.Request.Context(), nil)
	if err != nil {
		h.logger.Error("admin sweep failed", zap.Error(err))
		response.ServerError(c, "sweep failed")
		return
	}
	response.Success(c, gin.H{
		"started_at": report.StartedAt,
		"campaigns":  report.Campaigns,
		"finalized":  report.Finalized(),
	})
}
