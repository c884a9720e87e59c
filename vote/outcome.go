package vote

import (
	"github.com/shopspring/decimal"

	pollgate "github.com/pollgate/pollgate-go"
)

var oneHundred = decimal.NewFromInt(100)

// normalize maps the server's raw result into the caller-facing receipt:
// base-unit amounts become decimal display values, slippage becomes a
// percentage.
func normalize(raw *pollgate.RawVoteResult) *pollgate.VoteReceipt {
	return &pollgate.VoteReceipt{
		VoteID:               raw.VoteID,
		TransactionSignature: raw.TransactionSignature,
		AmountPaidUSDC:       raw.AmountPaidBaseUnits.ToUSDC(),
		QuotedAmountUSDC:     raw.QuotedBaseUnits.ToUSDC(),
		SlippagePercent:      decimal.NewFromFloat(raw.ActualSlippage).Mul(oneHundred),
		VoterPubkey:          raw.VoterPubkey,
		Side:                 raw.Side,
		PollID:               raw.PollID,
		Timestamp:            raw.Timestamp,
	}
}
