package model

import (
	"strings"
	"time"
)

const DefaultFeedURLTemplate = "https://apiv2.thiennguyen.app/api/v2/bank-account-transaction/{account_no}/transactionsV2"

// CharityCampaign is a charity fund bank account whose transaction history is exposed by the aggregator.
// Managed from the back office; the reconciliation core only reads it.
type CharityCampaign struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	AccountNumber  string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"account_number"`
	BankID         string    `gorm:"type:varchar(20);not null;default:MB" json:"bank_id"` // VietQR bank BIN/short name
	APIURLTemplate string    `gorm:"type:varchar(500);not null" json:"api_url_template"`
	IsActive       bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CharityCampaign) TableName() string {
	return "charity_campaign"
}

// FeedURL expands the campaign's URL template with its account number. fallbackTemplate is used
// when the campaign has none; DefaultFeedURLTemplate when both are empty.
func (c *CharityCampaign) FeedURL(fallbackTemplate string) string {
	tmpl := c.APIURLTemplate
	if tmpl == "" {
		tmpl = fallbackTemplate
	}
	if tmpl == "" {
		tmpl = DefaultFeedURLTemplate
	}
	return strings.ReplaceAll(tmpl, "{account_no}", c.AccountNumber)
}
