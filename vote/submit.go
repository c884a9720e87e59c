package vote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	pollgate "github.com/pollgate/pollgate-go"
	"github.com/pollgate/pollgate-go/wallet"
)

// EncodeProof serializes a signed transaction plus protocol metadata into
// the single opaque token carried by the payment header.
func EncodeProof(requirement *pollgate.PaymentRequirement, signedTx *wallet.SignedTransaction) (string, error) {
	txBase64, err := signedTx.Base64()
	if err != nil {
		return "", pollgate.NewVoteErrorf(pollgate.ErrCodeSignFailed,
			"failed to serialize signed transaction", "%v", err)
	}

	proof := pollgate.PaymentProof{
		X402Version: pollgate.ProtocolVersion,
		Scheme:      requirement.Scheme,
		Network:     requirement.Network,
		Payload:     pollgate.SolanaProofPayload{Transaction: txBase64},
	}

	proofJSON, err := json.Marshal(proof)
	if err != nil {
		return "", pollgate.NewVoteErrorf(pollgate.ErrCodeSignFailed,
			"failed to marshal payment proof", "%v", err)
	}

	return base64.StdEncoding.EncodeToString(proofJSON), nil
}

// Submit reissues the identical vote request with the payment proof
// attached and classifies the server's verdict. The proof is sent exactly
// once: a transport failure here is ambiguous (the transfer may already
// have landed) and is surfaced as submission_outcome_unknown rather than
// retried or folded into a rejection.
func (c *Client) Submit(ctx context.Context, req pollgate.VoteRequest, requirement *pollgate.PaymentRequirement, signedTx *wallet.SignedTransaction) (*pollgate.RawVoteResult, error) {
	proofToken, err := EncodeProof(requirement, signedTx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.voteURL(req), nil)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidRequest,
			"failed to build proof submission", "%v", err)
	}
	httpReq.Header.Set(PaymentHeader, proofToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		detail := err.Error()
		if sig, sigErr := signedTx.VoterSignature(); sigErr == nil {
			// Not the ledger transaction id (that is the fee payer's
			// signature, assigned server-side); it identifies which
			// authorization was in flight.
			detail = detail + "; voter signature " + sig.String()
		}
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeSubmissionOutcomeUnknown,
			"proof submission failed in transit; the transfer may have landed", "%s", detail)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeSubmissionOutcomeUnknown,
			"proof submission response was cut short; the transfer may have landed", "%v", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var raw pollgate.RawVoteResult
		if err := json.Unmarshal(body, &raw); err != nil {
			// The vote was accepted and the entry fee taken; only the
			// receipt is lost. A retry here would pay twice.
			return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeSubmissionOutcomeUnknown,
				"server accepted the vote but sent an undecodable result", "%v", err)
		}
		return &raw, nil
	case resp.StatusCode == http.StatusForbidden:
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeDuplicateVote,
			"this identity already voted on the poll", "%s", errorDetail(body, resp.Status))
	case resp.StatusCode == http.StatusConflict:
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeSlippageExceeded,
			"quoted entry fee moved beyond the slippage tolerance", "%s", errorDetail(body, resp.Status))
	default:
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeVoteRejected,
			"server rejected the payment proof", "status %d: %s", resp.StatusCode, errorDetail(body, resp.Status))
	}
}
