// Package feed is the client for the aggregator's bank account transaction history API.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ErrFeedUnavailable wraps every failure that leaves a cycle without usable data:
// network errors, timeouts, non-2xx statuses and undecodable bodies.
var ErrFeedUnavailable = errors.New("transaction feed unavailable")

const maxBodyBytes = 4 << 20

// Transaction is one entry of data.transactions.
type Transaction struct {
	ID        FlexString      `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"transactionAmount"`
	Time      string          `json:"transactionTime"` // Vietnam civil time, no offset
	Narrative string          `json:"narrative"`
}

type envelope struct {
	Data *struct {
		Transactions []Transaction `json:"transactions"`
	} `json:"data"`
}

// FlexString accepts both "123" and 123.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// Query is the window requested from the feed. Dates are YYYY-MM-DD.
type Query struct {
	FromDate   string
	ToDate     string
	PageNumber int
	PageSize   int
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("fromDate", q.FromDate)
	v.Set("toDate", q.ToDate)
	v.Set("pageNumber", strconv.Itoa(q.PageNumber))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	return v
}

type Client struct {
	httpClient *http.Client
}

// NewClient bounds every call by timeout. There is no retry; the next cycle is the retry.
func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// NewClientWithHTTP is for callers that bring their own transport.
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// FetchTransactions GETs feedURL with the query. A well-formed response without
// data.transactions yields an empty slice and no error.
func (c *Client) FetchTransactions(ctx context.Context, feedURL string, q Query) ([]Transaction, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad url %q: %v", ErrFeedUnavailable, feedURL, err)
	}
	params := u.Query()
	for k, vs := range q.values() {
		params[k] = vs
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFeedUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrFeedUnavailable, resp.StatusCode, truncate(body, 200))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFeedUnavailable, err)
	}
	if env.Data == nil {
		return nil, nil
	}
	return env.Data.Transactions, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
