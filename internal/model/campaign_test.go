package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharityCampaign_FeedURL(t *testing.T) {
	c := &CharityCampaign{AccountNumber: "2000", APIURLTemplate: "http://feed.local/{account_no}/tx"}
	assert.Equal(t, "http://feed.local/2000/tx", c.FeedURL("http://other/{account_no}"))

	c.APIURLTemplate = ""
	assert.Equal(t, "http://other/2000", c.FeedURL("http://other/{account_no}"))
	assert.Equal(t,
		"https://apiv2.thiennguyen.app/api/v2/bank-account-transaction/2000/transactionsV2",
		c.FeedURL(""))
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(RequestStatusPending, RequestStatusSuccess))
	assert.True(t, CanTransitionTo(RequestStatusPending, RequestStatusExpired))
	assert.False(t, CanTransitionTo(RequestStatusSuccess, RequestStatusPending))
	assert.False(t, CanTransitionTo(RequestStatusExpired, RequestStatusSuccess))
	assert.False(t, CanTransitionTo(RequestStatusSuccess, RequestStatusSuccess))
}
