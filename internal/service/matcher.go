package service

import (
	"context"
	"errors"

	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"
	"hoctuthien/pkg/paycode"
)

// CodeMatcher resolves a transaction narrative to the PENDING request it pays for.
type CodeMatcher struct {
	requestRepo *repository.PaymentRequestRepository
}

func NewCodeMatcher(requestRepo *repository.PaymentRequestRepository) *CodeMatcher {
	return &CodeMatcher{requestRepo: requestRepo}
}

// Match returns nil, nil when there is nothing to settle: the transaction is already processed, the
// narrative holds no code, or no PENDING request has that code with exactly this amount and campaign.
func (m *CodeMatcher) Match(ctx context.Context, trans *model.ExternalTransaction) (*model.PaymentRequest, error) {
	if trans.IsProcessed {
		return nil, nil
	}

	code, ok := paycode.Extract(trans.Description)
	if !ok {
		return nil, nil
	}

	req, err := m.requestRepo.FindPendingMatch(ctx, code, trans.Amount, trans.CampaignID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentRequestNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}
