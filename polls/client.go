// Package polls is the read-only query client for polls, positions, and
// platform stats. Plain request/response; no protocol state, no retries.
package polls

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client queries the read-only poll API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a query client. A nil httpClient gets a default with a
// request timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// PollSummary is one poll in a listing.
type PollSummary struct {
	PollID       string `json:"poll_id"`
	Question     string `json:"question"`
	Status       string `json:"status"`
	YesVotes     int    `json:"yes_votes"`
	NoVotes      int    `json:"no_votes"`
	EntryFeeBase uint64 `json:"entry_fee_usdc_base_units"`
	ClosesAt     string `json:"closes_at"`
}

// PollPage is a page of poll summaries.
type PollPage struct {
	Polls      []PollSummary `json:"polls"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// PollDetails is the full state of one poll.
type PollDetails struct {
	PollSummary
	Description   string `json:"description,omitempty"`
	PoolBase      uint64 `json:"pool_usdc_base_units"`
	YesPoolBase   uint64 `json:"yes_pool_usdc_base_units"`
	NoPoolBase    uint64 `json:"no_pool_usdc_base_units"`
	ResolvedSide  string `json:"resolved_side,omitempty"`
	CreatorPubkey string `json:"creator_pubkey,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// Position is one holder's stake on one poll.
type Position struct {
	PollID        string `json:"poll_id"`
	VoterPubkey   string `json:"voter_pubkey"`
	Side          string `json:"side"`
	AmountBase    uint64 `json:"amount_usdc_base_units"`
	VotedAt       string `json:"voted_at"`
	PayoutBase    uint64 `json:"payout_usdc_base_units,omitempty"`
	PayoutClaimed bool   `json:"payout_claimed,omitempty"`
}

// Stats is the platform-wide aggregate view.
type Stats struct {
	TotalPolls      int    `json:"total_polls"`
	ActivePolls     int    `json:"active_polls"`
	TotalVotes      int    `json:"total_votes"`
	TotalVolumeBase uint64 `json:"total_volume_usdc_base_units"`
}

// ListFilters narrows a poll listing. Zero values are omitted.
type ListFilters struct {
	Status string
	Limit  int
	Cursor string
}

// ListPolls fetches a page of polls matching the filters.
func (c *Client) ListPolls(ctx context.Context, filters ListFilters) (*PollPage, error) {
	query := url.Values{}
	if filters.Status != "" {
		query.Set("status", filters.Status)
	}
	if filters.Limit > 0 {
		query.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Cursor != "" {
		query.Set("cursor", filters.Cursor)
	}

	endpoint := c.baseURL + "/polls"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var page PollPage
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPoll fetches one poll.
func (c *Client) GetPoll(ctx context.Context, pollID string) (*PollDetails, error) {
	var details PollDetails
	if err := c.getJSON(ctx, fmt.Sprintf("%s/poll/%s", c.baseURL, url.PathEscape(pollID)), &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetPosition fetches a holder's position on a poll.
func (c *Client) GetPosition(ctx context.Context, pollID, holder string) (*Position, error) {
	var position Position
	endpoint := fmt.Sprintf("%s/poll/%s/position/%s", c.baseURL, url.PathEscape(pollID), url.PathEscape(holder))
	if err := c.getJSON(ctx, endpoint, &position); err != nil {
		return nil, err
	}
	return &position, nil
}

// GetStats fetches platform-wide aggregates.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.getJSON(ctx, c.baseURL+"/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
