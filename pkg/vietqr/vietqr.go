// Package vietqr builds VietQR quick-link image URLs for bank transfer instructions.
package vietqr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const DefaultBaseURL = "https://img.vietqr.io/image"

// BuildLink returns {base}/{bank}-{account}-compact.png?amount=..&addInfo=..
func BuildLink(baseURL, bankID, accountNo string, amount int64, note string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if bankID == "" {
		bankID = "MB"
	}
	params := url.Values{}
	params.Set("addInfo", note)
	params.Set("amount", strconv.FormatInt(amount, 10))

	return fmt.Sprintf("%s/%s-%s-compact.png?%s",
		strings.TrimRight(baseURL, "/"), bankID, accountNo, params.Encode())
}
