package svm

import (
	"context"

	solana "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"

	pollgate "github.com/pollgate/pollgate-go"
)

// Builder compiles transfer transactions locally against the ledger.
type Builder struct {
	ledger Ledger
}

// NewBuilder creates a local transaction source over the given ledger.
func NewBuilder(ledger Ledger) *Builder {
	return &Builder{ledger: ledger}
}

// Build constructs the minimal instruction set satisfying the requirement:
// an optional create-holding-account instruction (paid by the fee payer,
// never the voter) followed by a single TransferChecked of the exact quoted
// amount, compiled against a recent blockhash with the requirement's fee
// payer. The result is inert until signed.
func (b *Builder) Build(ctx context.Context, requirement *pollgate.PaymentRequirement, voter solana.PublicKey) (*solana.Transaction, error) {
	if requirement.Asset == "" {
		return nil, pollgate.NewVoteError(pollgate.ErrCodeMissingAsset,
			"payment requirement carries no asset identifier")
	}

	mint, err := solana.PublicKeyFromBase58(requirement.Asset)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidRequirement,
			"invalid asset address", "%v", err)
	}

	payTo, err := solana.PublicKeyFromBase58(requirement.PayTo)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidRequirement,
			"invalid payTo address", "%v", err)
	}

	feePayerAddr, ok := requirement.FeePayer()
	if !ok {
		return nil, pollgate.NewVoteError(pollgate.ErrCodeMissingFeePayer,
			"feePayer is required in the requirement's extra map")
	}
	feePayer, err := solana.PublicKeyFromBase58(feePayerAddr)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidRequirement,
			"invalid feePayer address", "%v", err)
	}

	// The amount is the server's verbatim quote. Never recompute it.
	amount, err := requirement.Amount()
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidRequirement,
			"invalid amount", "%v", err)
	}

	sourceAccount, _, err := solana.FindAssociatedTokenAddress(voter, mint)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"failed to derive voter holding account", "%v", err)
	}

	destinationAccount, _, err := solana.FindAssociatedTokenAddress(payTo, mint)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"failed to derive recipient holding account", "%v", err)
	}

	mintInfo, err := b.ledger.MintInfo(ctx, mint)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeLedgerUnavailable,
			"failed to read mint account", "%v", err)
	}
	if mintInfo.Owner != solana.TokenProgramID && mintInfo.Owner != solana.Token2022ProgramID {
		return nil, pollgate.NewVoteError(pollgate.ErrCodeInvalidRequirement,
			"asset was not created by a known token program")
	}

	destinationExists, err := b.ledger.AccountExists(ctx, destinationAccount)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeLedgerUnavailable,
			"failed to check recipient holding account", "%v", err)
	}

	var instructions []solana.Instruction
	if !destinationExists {
		createIx, err := associatedtokenaccount.NewCreateInstruction(feePayer, payTo, mint).ValidateAndBuild()
		if err != nil {
			return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
				"failed to build create-account instruction", "%v", err)
		}
		instructions = append(instructions, createIx)
	}

	transferIx, err := token.NewTransferCheckedInstructionBuilder().
		SetAmount(amount).
		SetDecimals(mintInfo.Decimals).
		SetSourceAccount(sourceAccount).
		SetMintAccount(mint).
		SetDestinationAccount(destinationAccount).
		SetOwnerAccount(voter).
		ValidateAndBuild()
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"failed to build transfer instruction", "%v", err)
	}
	instructions = append(instructions, transferIx)

	blockhash, err := b.ledger.LatestBlockhash(ctx)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeLedgerUnavailable,
			"failed to fetch recent blockhash", "%v", err)
	}

	builder := solana.NewTransactionBuilder().
		SetRecentBlockHash(blockhash).
		SetFeePayer(feePayer)
	for _, ix := range instructions {
		builder.AddInstruction(ix)
	}

	tx, err := builder.Build()
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"failed to compile transaction", "%v", err)
	}

	return tx, nil
}
