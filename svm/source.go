package svm

import (
	"context"

	solana "github.com/gagliardetto/solana-go"

	pollgate "github.com/pollgate/pollgate-go"
)

// TransactionSource produces the unsigned, compiled transaction that
// satisfies a payment requirement. Two implementations exist: Builder
// compiles locally against the ledger, FacilitatorSource asks a remote
// facilitator to compile. The rest of the protocol is identical either way.
type TransactionSource interface {
	Build(ctx context.Context, requirement *pollgate.PaymentRequirement, voter solana.PublicKey) (*solana.Transaction, error)
}
