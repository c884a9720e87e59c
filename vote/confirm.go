package vote

import (
	"context"
	"time"

	solana "github.com/gagliardetto/solana-go"

	pollgate "github.com/pollgate/pollgate-go"
)

const confirmPollInterval = 2 * time.Second

// awaitFinality polls the ledger until the vote's transfer is finalized or
// the confirmation window closes. The vote has already been accepted by the
// server when this runs, so giving up is a pending status, never a failure.
func (c *Client) awaitFinality(ctx context.Context, signature string) pollgate.ConfirmationStatus {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		c.log.Warn("server returned an unparseable transaction signature", map[string]any{
			"signature": signature,
			"error":     err.Error(),
		})
		return pollgate.ConfirmationPending
	}

	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		finalized, err := c.ledger.IsFinalized(ctx, sig)
		if err == nil && finalized {
			return pollgate.ConfirmationFinalized
		}

		select {
		case <-ctx.Done():
			return pollgate.ConfirmationPending
		case <-ticker.C:
		}
	}
}
