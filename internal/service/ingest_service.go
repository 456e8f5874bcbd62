package service

import (
	"context"
	"strings"

	"hoctuthien/internal/feed"
	"hoctuthien/internal/metrics"
	"hoctuthien/internal/model"
	"hoctuthien/internal/repository"
	"hoctuthien/pkg/vntime"

	"go.uber.org/zap"
)

// TransactionIngestor persists feed entries exactly once per aggregator transaction id.
type TransactionIngestor struct {
	transactionRepo *repository.ExternalTransactionRepository
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewTransactionIngestor(transactionRepo *repository.ExternalTransactionRepository, m *metrics.Metrics, logger *zap.Logger) *TransactionIngestor {
	return &TransactionIngestor{
		transactionRepo: transactionRepo,
		metrics:         m,
		logger:          logger.Named("TransactionIngestor"),
	}
}

// Ingest returns the stored row for raw and whether this call created it.
//
// A nil transaction with a nil error means raw was ignored: not a credit, no id, or an amount that
// is not a positive whole number of dong. An existing row is returned as stored, never overwritten.
func (s *TransactionIngestor) Ingest(ctx context.Context, raw feed.Transaction, campaign *model.CharityCampaign) (*model.ExternalTransaction, bool, error) {
	if !strings.EqualFold(raw.Type, model.TransactionTypeCredit) {
		return nil, false, nil
	}

	transactionID := strings.TrimSpace(string(raw.ID))
	if transactionID == "" {
		s.logger.Warn("credit without id ignored", zap.Int64("campaign_id", campaign.ID))
		return nil, false, nil
	}

	if !raw.Amount.IsInteger() || !raw.Amount.IsPositive() {
		s.logger.Warn("credit with unusable amount ignored",
			zap.String("transaction_id", transactionID),
			zap.String("amount", raw.Amount.String()))
		return nil, false, nil
	}

	trans := &model.ExternalTransaction{
		TransactionID: transactionID,
		CampaignID:    campaign.ID,
		Amount:        raw.Amount.IntPart(),
		Description:   raw.Narrative,
		IsProcessed:   false,
	}
	if at, ok := vntime.Parse(raw.Time); ok {
		utc := at.UTC()
		trans.TransactionDate = &utc
	} else if raw.Time != "" {
		s.logger.Warn("unparseable transaction time",
			zap.String("transaction_id", transactionID),
			zap.String("transaction_time", raw.Time))
	}

	stored, created, err := s.transactionRepo.CreateIfAbsent(ctx, trans)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.metrics.IngestedTxns.Inc()
		s.logger.Debug("transaction ingested",
			zap.String("transaction_id", transactionID),
			zap.Int64("campaign_id", campaign.ID),
			zap.Int64("amount", trans.Amount))
	}
	return stored, created, nil
}
