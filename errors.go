package pollgate

import (
	"errors"
	"fmt"
)

// VoteError is a classified protocol failure. Every component converts its
// failures into one of these; callers branch on Code.
type VoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *VoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes, grouped by the retry semantics they imply.
const (
	// Caller-correctable input errors. No network or signing effect has
	// occurred when these are raised.
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeInvalidKey         = "invalid_key"
	ErrCodeMissingAsset       = "missing_asset"
	ErrCodeMissingFeePayer    = "missing_fee_payer"
	ErrCodeInvalidRequirement = "invalid_requirement"

	// Server-side business-rule rejections.
	ErrCodeDuplicateVote     = "duplicate_vote"
	ErrCodePollNotFound      = "poll_not_found"
	ErrCodeSlippageExceeded  = "slippage_exceeded"
	ErrCodeVoteRejected      = "vote_rejected"

	// The server's challenge did not match what this client understands.
	ErrCodeNoAcceptedPaymentMethod = "no_accepted_payment_method"
	ErrCodeUnsupportedScheme       = "unsupported_scheme"
	ErrCodeUnexpectedStatus        = "unexpected_status"

	// Infrastructure failures. Retrying is safe only before a proof has
	// been submitted.
	ErrCodeLedgerUnavailable = "ledger_unavailable"
	ErrCodeNetworkError      = "network_error"
	ErrCodeBuildFailed       = "transaction_build_failed"
	ErrCodeSignFailed        = "transaction_sign_failed"

	// The proof submission's outcome could not be established: the
	// request failed in transit, or the server accepted the vote but its
	// result was unreadable. The transfer may already have landed
	// on-chain; reconcile against ledger state before any retry.
	ErrCodeSubmissionOutcomeUnknown = "submission_outcome_unknown"
)

// NewVoteError creates a classified error.
func NewVoteError(code, message string) *VoteError {
	return &VoteError{Code: code, Message: message}
}

// NewVoteErrorf creates a classified error with a formatted detail string.
func NewVoteErrorf(code, message, detailFormat string, args ...interface{}) *VoteError {
	return &VoteError{Code: code, Message: message, Detail: fmt.Sprintf(detailFormat, args...)}
}

// AsVoteError extracts a VoteError from an error chain. Unclassified errors
// are wrapped under fallbackCode so that no raw fault reaches a caller.
func AsVoteError(err error, fallbackCode string) *VoteError {
	var ve *VoteError
	if errors.As(err, &ve) {
		return ve
	}
	return &VoteError{Code: fallbackCode, Message: err.Error()}
}

// RetrySafe reports whether re-running the full flow (fresh negotiation
// included) is safe after this error. It is never safe after an ambiguous
// submission outcome.
func (e *VoteError) RetrySafe() bool {
	switch e.Code {
	case ErrCodeSubmissionOutcomeUnknown, ErrCodeDuplicateVote:
		return false
	}
	return true
}
