package repository

import "errors"

var (
	ErrCampaignNotFound       = errors.New("charity campaign not found")
	ErrNoActiveCampaign       = errors.New("no active charity campaign configured")
	ErrPaymentRequestNotFound = errors.New("payment request not found")
	ErrDuplicatePaymentCode   = errors.New("payment code already used")
	ErrRequestStatusConflict  = errors.New("payment request status changed concurrently")
	ErrTransactionNotFound    = errors.New("external transaction not found")
	ErrTransactionProcessed   = errors.New("external transaction already processed")
	ErrUserNotFound           = errors.New("user not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrBookingStatusInvalid   = errors.New("booking is not payable")
)
