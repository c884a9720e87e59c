package pollgate

import (
	"errors"
	"fmt"
	"testing"
)

func TestAsVoteError(t *testing.T) {
	classified := NewVoteError(ErrCodeSlippageExceeded, "fee moved")
	wrapped := fmt.Errorf("submit: %w", classified)

	got := AsVoteError(wrapped, ErrCodeVoteRejected)
	if got.Code != ErrCodeSlippageExceeded {
		t.Errorf("expected classified code to survive wrapping, got %s", got.Code)
	}

	plain := errors.New("connection reset")
	got = AsVoteError(plain, ErrCodeNetworkError)
	if got.Code != ErrCodeNetworkError {
		t.Errorf("expected fallback code, got %s", got.Code)
	}
	if got.Message != "connection reset" {
		t.Errorf("expected original detail preserved, got %q", got.Message)
	}
}

func TestRetrySafe(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{ErrCodeSlippageExceeded, true},
		{ErrCodeLedgerUnavailable, true},
		{ErrCodeNetworkError, true},
		{ErrCodeSubmissionOutcomeUnknown, false},
		{ErrCodeDuplicateVote, false},
	}
	for _, tt := range tests {
		if got := (&VoteError{Code: tt.code}).RetrySafe(); got != tt.want {
			t.Errorf("RetrySafe(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
