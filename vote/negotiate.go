package vote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	pollgate "github.com/pollgate/pollgate-go"
	"github.com/pollgate/pollgate-go/svm"
)

// voteURL builds the vote endpoint for a request. The same URL is used for
// negotiation and for the proof-carrying resubmission.
func (c *Client) voteURL(req pollgate.VoteRequest) string {
	query := url.Values{}
	query.Set("side", string(req.Side))
	query.Set("slippage", fmt.Sprintf("%g", req.Slippage))
	return fmt.Sprintf("%s/poll/%s/vote?%s", c.baseURL, url.PathEscape(req.PollID), query.Encode())
}

// errorBody is the server's structured error shape.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func errorDetail(body []byte, status string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Detail != "" {
			return eb.Detail
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	return status
}

// Negotiate issues the unauthenticated vote request and extracts the single
// payment requirement this client will satisfy. A negotiation failure is
// terminal for the attempt; the server state has not changed.
func (c *Client) Negotiate(ctx context.Context, req pollgate.VoteRequest) (*pollgate.PaymentRequirement, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.voteURL(req), nil)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidRequest,
			"failed to build vote request", "%v", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeNetworkError,
			"vote negotiation request failed", "%v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeNetworkError,
			"failed to read negotiation response", "%v", err)
	}

	switch resp.StatusCode {
	case http.StatusPaymentRequired:
		// proceed to challenge parsing
	case http.StatusBadRequest:
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidRequest,
			"server rejected the vote request", "%s", errorDetail(body, resp.Status))
	case http.StatusForbidden:
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeDuplicateVote,
			"this identity already voted on the poll", "%s", errorDetail(body, resp.Status))
	case http.StatusNotFound:
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodePollNotFound,
			"poll does not exist", "%s", errorDetail(body, resp.Status))
	default:
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeUnexpectedStatus,
			"unexpected status during negotiation", "status %d: %s", resp.StatusCode, errorDetail(body, resp.Status))
	}

	if err := pollgate.ValidateChallengeBody(body); err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeNoAcceptedPaymentMethod,
			"server sent a malformed payment challenge", "%v", err)
	}

	var challenge pollgate.PaymentChallenge
	if err := json.Unmarshal(body, &challenge); err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeNoAcceptedPaymentMethod,
			"server sent an undecodable payment challenge", "%v", err)
	}

	return selectRequirement(&challenge)
}

// selectRequirement picks the first requirement whose scheme and network
// this client can fulfill. Selection never defaults or zero-fills; a
// challenge with nothing usable fails closed.
func selectRequirement(challenge *pollgate.PaymentChallenge) (*pollgate.PaymentRequirement, error) {
	if len(challenge.Accepts) == 0 {
		return nil, pollgate.NewVoteError(pollgate.ErrCodeNoAcceptedPaymentMethod,
			"payment challenge offers no payment methods")
	}

	for i := range challenge.Accepts {
		requirement := &challenge.Accepts[i]
		if requirement.Scheme != pollgate.SchemeExact || !svm.IsSupportedNetwork(requirement.Network) {
			continue
		}
		if requirement.Asset == "" {
			return nil, pollgate.NewVoteError(pollgate.ErrCodeMissingAsset,
				"payment requirement carries no asset identifier")
		}
		return requirement, nil
	}

	return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeUnsupportedScheme,
		"no offered payment method is supported", "%d methods offered", len(challenge.Accepts))
}
