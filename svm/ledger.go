package svm

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// MintInfo is the on-chain metadata of a transferable asset this protocol
// cares about: which token program owns it and its decimal precision.
type MintInfo struct {
	Owner    solana.PublicKey
	Decimals uint8
}

// Ledger is the chain read capability the protocol consumes. The builder
// needs account existence, mint metadata, and a recent blockhash;
// confirmation tracking needs signature status. Broadcasting is the fee
// payer's job, so the client never sends.
type Ledger interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	MintInfo(ctx context.Context, mint solana.PublicKey) (MintInfo, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	IsFinalized(ctx context.Context, sig solana.Signature) (bool, error)
}

// RPCLedger implements Ledger over a Solana JSON-RPC endpoint.
type RPCLedger struct {
	client *rpc.Client
}

// NewRPCLedger connects to the given RPC URL, falling back to the network's
// default endpoint when url is empty.
func NewRPCLedger(network NetworkConfig, url string) *RPCLedger {
	if url == "" {
		url = network.RPCURL
	}
	return &RPCLedger{client: rpc.New(url)}
}

func (l *RPCLedger) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	out, err := l.client.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return out != nil && out.Value != nil, nil
}

func (l *RPCLedger) MintInfo(ctx context.Context, mint solana.PublicKey) (MintInfo, error) {
	out, err := l.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return MintInfo{}, err
	}
	if out == nil || out.Value == nil {
		return MintInfo{}, fmt.Errorf("mint account %s does not exist", mint)
	}

	var mintData token.Mint
	if err := bin.NewBinDecoder(out.Value.Data.GetBinary()).Decode(&mintData); err != nil {
		return MintInfo{}, fmt.Errorf("failed to decode mint data: %w", err)
	}

	return MintInfo{Owner: out.Value.Owner, Decimals: mintData.Decimals}, nil
}

func (l *RPCLedger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := l.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	return out.Value.Blockhash, nil
}

func (l *RPCLedger) IsFinalized(ctx context.Context, sig solana.Signature) (bool, error) {
	out, err := l.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, err
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}
	return out.Value[0].ConfirmationStatus == rpc.ConfirmationStatusFinalized, nil
}
