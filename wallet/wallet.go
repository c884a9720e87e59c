// Package wallet decodes holder-controlled keys and signs compiled vote
// transactions. Decoding is pure; the secret material never leaves the
// Identity that holds it.
package wallet

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	pollgate "github.com/pollgate/pollgate-go"
)

// ed25519 secret keys decode to 64 bytes (seed + public half).
const secretKeyLength = 64

// Identity is a signing identity: the voter's secret material plus its
// derived public identity. It must not be logged or persisted.
type Identity struct {
	key solana.PrivateKey
}

// Decode turns a base58-encoded secret key into a signing identity.
// Malformed encodings and wrong decoded lengths fail with invalid_key.
func Decode(secretBase58 string) (*Identity, error) {
	key, err := solana.PrivateKeyFromBase58(secretBase58)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidKey,
			"secret key is not valid base58", "%v", err)
	}
	if len(key) != secretKeyLength {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidKey,
			"secret key has wrong length", "expected %d bytes, got %d", secretKeyLength, len(key))
	}
	return &Identity{key: key}, nil
}

// PublicKey returns the derived public identity.
func (id *Identity) PublicKey() solana.PublicKey {
	return id.key.PublicKey()
}

// SignedTransaction is a compiled transaction carrying the voter's
// signature. It exists as its own type so a proof can only ever be built
// from a signed transaction, never from an unsigned one.
type SignedTransaction struct {
	tx *solana.Transaction
}

// Sign attaches exactly one signature, from the identity's secret material,
// over the compiled transaction's message. Instructions, fee payer, and
// blockhash are untouched.
func (id *Identity) Sign(tx *solana.Transaction) (*SignedTransaction, error) {
	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeSignFailed,
			"failed to marshal transaction message", "%v", err)
	}

	signature, err := id.key.Sign(messageBytes)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeSignFailed,
			"failed to sign transaction message", "%v", err)
	}

	accountIndex, err := tx.GetAccountIndex(id.key.PublicKey())
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeSignFailed,
			"voter is not a signer of this transaction", "%v", err)
	}

	if len(tx.Signatures) <= int(accountIndex) {
		signatures := make([]solana.Signature, accountIndex+1)
		copy(signatures, tx.Signatures)
		tx.Signatures = signatures
	}
	tx.Signatures[accountIndex] = signature

	return &SignedTransaction{tx: tx}, nil
}

// Transaction exposes the underlying signed transaction for broadcast and
// confirmation tracking.
func (s *SignedTransaction) Transaction() *solana.Transaction {
	return s.tx
}

// VoterSignature returns the voter's signature over the message. It proves
// which authorization was sent; it is not the ledger transaction id, which
// is the fee payer's signature and exists only after the server
// countersigns.
func (s *SignedTransaction) VoterSignature() (solana.Signature, error) {
	for _, sig := range s.tx.Signatures {
		if !sig.IsZero() {
			return sig, nil
		}
	}
	return solana.Signature{}, fmt.Errorf("transaction carries no signature")
}

// Base64 serializes the signed transaction for transport inside a payment
// proof.
func (s *SignedTransaction) Base64() (string, error) {
	return s.tx.ToBase64()
}
