// Package pollgate contains the shared types of the payment-gated vote
// protocol: the server's payment challenge, the vote request, the signed
// payment proof, and the caller-facing vote outcome.
package pollgate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProtocolVersion is the x402 protocol version this client speaks.
const ProtocolVersion = 1

// SchemeExact is the only payment scheme the client can fulfill: an exact
// on-chain token transfer of the quoted amount.
const SchemeExact = "exact"

// USDCBaseUnitExponent converts governance-token base units to display
// values (1 USDC = 10^6 base units).
const USDCBaseUnitExponent = 6

// Side is one of the two mutually exclusive poll sides.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// DefaultSlippage is the slippage tolerance applied when the caller leaves
// it unset.
const DefaultSlippage = 0.05

// VoteRequest describes one vote attempt. It is constructed by the caller
// and never mutated by the protocol.
type VoteRequest struct {
	PollID   string  `json:"pollId" validate:"required"`
	Side     Side    `json:"side" validate:"required,oneof=yes no"`
	Slippage float64 `json:"slippage" validate:"gte=0,lte=1"`
}

// Network is a blockchain network identifier. The server may send either a
// short name ("solana", "solana-devnet") or a CAIP-2 identifier
// ("solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp").
type Network string

// IsSolana reports whether the network denotes the Solana chain family.
func (n Network) IsSolana() bool {
	s := string(n)
	return s == "solana" || strings.HasPrefix(s, "solana-") || strings.HasPrefix(s, "solana:")
}

// PaymentRequirement is one server-issued description of a payment that
// satisfies the vote. It is immutable once received and valid only for the
// negotiation round that produced it; amount and recipient are the server's
// to dictate, never the client's to recompute.
type PaymentRequirement struct {
	Scheme            string           `json:"scheme"`
	Network           Network          `json:"network"`
	Asset             string           `json:"asset"`
	PayTo             string           `json:"payTo"`
	MaxAmountRequired string           `json:"maxAmountRequired"`
	Resource          string           `json:"resource,omitempty"`
	Description       string           `json:"description,omitempty"`
	MaxTimeoutSeconds int              `json:"maxTimeoutSeconds,omitempty"`
	Extra             *json.RawMessage `json:"extra,omitempty"`
}

// FeePayer extracts the fee-payer account from the requirement's extension
// map. Returns false when the server supplied none.
func (r *PaymentRequirement) FeePayer() (string, bool) {
	if r.Extra == nil {
		return "", false
	}
	var extra map[string]interface{}
	if err := json.Unmarshal(*r.Extra, &extra); err != nil {
		return "", false
	}
	feePayer, ok := extra["feePayer"].(string)
	return feePayer, ok && feePayer != ""
}

// Amount parses the requirement's exact amount in smallest asset units.
func (r *PaymentRequirement) Amount() (uint64, error) {
	return strconv.ParseUint(r.MaxAmountRequired, 10, 64)
}

// PaymentChallenge is the body of the server's 402 response.
type PaymentChallenge struct {
	X402Version int                  `json:"x402Version"`
	Error       string               `json:"error,omitempty"`
	Resource    string               `json:"resource,omitempty"`
	Accepts     []PaymentRequirement `json:"accepts"`
}

// SolanaProofPayload carries the signed transaction inside a payment proof.
type SolanaProofPayload struct {
	Transaction string `json:"transaction"`
}

// PaymentProof is the proof token resubmitted with the vote request: the
// protocol version, the scheme/network tags of the accepted requirement, and
// the base64-encoded signed transaction. It is built exactly once per vote
// attempt and never reused.
type PaymentProof struct {
	X402Version int                `json:"x402Version"`
	Scheme      string             `json:"scheme"`
	Network     Network            `json:"network"`
	Payload     SolanaProofPayload `json:"payload"`
}

// BaseUnits is an integer amount in smallest asset units. Servers are
// inconsistent about quoting these as JSON numbers or strings, so decoding
// accepts both.
type BaseUnits uint64

// UnmarshalJSON implements lenient decoding of quoted and bare integers.
func (b *BaseUnits) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*b = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid base unit amount %q: %w", s, err)
	}
	*b = BaseUnits(v)
	return nil
}

// ToUSDC converts the amount to a display value using the governance
// token's base-unit exponent.
func (b BaseUnits) ToUSDC() decimal.Decimal {
	return decimal.New(int64(b), -USDCBaseUnitExponent)
}

// RawVoteResult is the server's success body for an accepted vote, prior to
// normalization.
type RawVoteResult struct {
	VoteID               string    `json:"vote_id"`
	TransactionSignature string    `json:"transaction_signature"`
	AmountPaidBaseUnits  BaseUnits `json:"amount_paid_usdc_base_units"`
	QuotedBaseUnits      BaseUnits `json:"quoted_amount_usdc_base_units"`
	ActualSlippage       float64   `json:"actual_slippage"`
	VoterPubkey          string    `json:"voter_pubkey"`
	Side                 Side      `json:"side"`
	PollID               string    `json:"poll_id"`
	Timestamp            string    `json:"timestamp"`
}

// ConfirmationStatus describes on-chain finality of the vote's transfer
// after the server has already accepted the vote.
type ConfirmationStatus string

const (
	// ConfirmationSkipped means finality tracking was not requested.
	ConfirmationSkipped ConfirmationStatus = "skipped"
	// ConfirmationFinalized means the transfer reached a finalized state.
	ConfirmationFinalized ConfirmationStatus = "finalized"
	// ConfirmationPending means the transfer was not yet observed as
	// finalized when tracking gave up. The vote itself stands.
	ConfirmationPending ConfirmationStatus = "pending"
)

// VoteReceipt is the normalized success result of a vote attempt.
type VoteReceipt struct {
	VoteID               string          `json:"voteId"`
	TransactionSignature string          `json:"transactionSignature"`
	AmountPaidUSDC       decimal.Decimal `json:"amountPaidUsdc"`
	QuotedAmountUSDC     decimal.Decimal `json:"quotedAmountUsdc"`
	SlippagePercent      decimal.Decimal `json:"actualSlippagePercent"`
	VoterPubkey          string          `json:"voterPubkey"`
	Side                 Side            `json:"side"`
	PollID               string          `json:"pollId"`
	Timestamp            string          `json:"timestamp"`
}

// VoteOutcome is the only value the protocol ever hands back to a caller.
// Exactly one of Receipt and Err is set.
type VoteOutcome struct {
	// AttemptID correlates logs and metrics for one vote attempt.
	AttemptID    string             `json:"attemptId"`
	Receipt      *VoteReceipt       `json:"receipt,omitempty"`
	Err          *VoteError         `json:"error,omitempty"`
	Confirmation ConfirmationStatus `json:"confirmation,omitempty"`
}

// Success reports whether the vote was accepted by the server.
func (o VoteOutcome) Success() bool {
	return o.Receipt != nil
}
