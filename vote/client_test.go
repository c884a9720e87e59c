package vote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/require"

	pollgate "github.com/pollgate/pollgate-go"
	"github.com/pollgate/pollgate-go/wallet"
)

type stubSource struct {
	tx  *solana.Transaction
	err error
}

func (s stubSource) Build(ctx context.Context, requirement *pollgate.PaymentRequirement, voter solana.PublicKey) (*solana.Transaction, error) {
	return s.tx, s.err
}

func newIdentity(t *testing.T) *wallet.Identity {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	identity, err := wallet.Decode(key.String())
	require.NoError(t, err)
	return identity
}

// transferTx compiles a transaction the identity can sign, standing in for
// the builder's output.
func transferTx(t *testing.T, voter solana.PublicKey) *solana.Transaction {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	source, _, err := solana.FindAssociatedTokenAddress(voter, mint)
	require.NoError(t, err)
	destination, _, err := solana.FindAssociatedTokenAddress(solana.NewWallet().PublicKey(), mint)
	require.NoError(t, err)

	transferIx, err := token.NewTransferCheckedInstructionBuilder().
		SetAmount(10500000).
		SetDecimals(6).
		SetSourceAccount(source).
		SetMintAccount(mint).
		SetDestinationAccount(destination).
		SetOwnerAccount(voter).
		ValidateAndBuild()
	require.NoError(t, err)

	tx, err := solana.NewTransactionBuilder().
		AddInstruction(transferIx).
		SetRecentBlockHash(solana.Hash(solana.NewWallet().PublicKey())).
		SetFeePayer(solana.NewWallet().PublicKey()).
		Build()
	require.NoError(t, err)
	return tx
}

func challengeBody(feePayer string) pollgate.PaymentChallenge {
	extra := json.RawMessage(fmt.Sprintf(`{"feePayer":%q}`, feePayer))
	return pollgate.PaymentChallenge{
		X402Version: pollgate.ProtocolVersion,
		Accepts: []pollgate.PaymentRequirement{{
			Scheme:            pollgate.SchemeExact,
			Network:           "solana-devnet",
			Asset:             solana.NewWallet().PublicKey().String(),
			PayTo:             solana.NewWallet().PublicKey().String(),
			MaxAmountRequired: "10500000",
			Extra:             &extra,
		}},
	}
}

func TestNegotiateStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{name: "bad request", status: 400, body: `{"error":"side must be yes or no"}`, wantCode: pollgate.ErrCodeInvalidRequest},
		{name: "duplicate vote", status: 403, body: `{"error":"already voted"}`, wantCode: pollgate.ErrCodeDuplicateVote},
		{name: "poll not found", status: 404, body: `{"error":"no such poll"}`, wantCode: pollgate.ErrCodePollNotFound},
		{name: "server error", status: 500, body: `{"error":"boom"}`, wantCode: pollgate.ErrCodeUnexpectedStatus},
		{name: "unexpected success", status: 200, body: `{}`, wantCode: pollgate.ErrCodeUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := New(server.URL, newIdentity(t), stubSource{})
			_, err := client.Negotiate(context.Background(), NewVoteRequest("p1", pollgate.SideYes))
			require.Error(t, err)
			require.Equal(t, tt.wantCode, pollgate.AsVoteError(err, "").Code)
		})
	}
}

func TestNegotiateChallengeSelection(t *testing.T) {
	tests := []struct {
		name     string
		accepts  string
		wantCode string
	}{
		{
			name:     "empty accepts",
			accepts:  `[]`,
			wantCode: pollgate.ErrCodeNoAcceptedPaymentMethod,
		},
		{
			name:     "only unsupported networks",
			accepts:  `[{"scheme":"exact","network":"eip155:8453","payTo":"x","maxAmountRequired":"1","asset":"y"}]`,
			wantCode: pollgate.ErrCodeUnsupportedScheme,
		},
		{
			name:     "solana family but unknown deployment",
			accepts:  `[{"scheme":"exact","network":"solana-testnet","payTo":"x","maxAmountRequired":"1","asset":"y"}]`,
			wantCode: pollgate.ErrCodeUnsupportedScheme,
		},
		{
			name:     "only unsupported schemes",
			accepts:  `[{"scheme":"deferred","network":"solana","payTo":"x","maxAmountRequired":"1","asset":"y"}]`,
			wantCode: pollgate.ErrCodeUnsupportedScheme,
		},
		{
			name:     "supported but missing asset",
			accepts:  `[{"scheme":"exact","network":"solana","payTo":"x","maxAmountRequired":"1"}]`,
			wantCode: pollgate.ErrCodeMissingAsset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPaymentRequired)
				fmt.Fprintf(w, `{"x402Version":1,"accepts":%s}`, tt.accepts)
			}))
			defer server.Close()

			client := New(server.URL, newIdentity(t), stubSource{})
			_, err := client.Negotiate(context.Background(), NewVoteRequest("p1", pollgate.SideNo))
			require.Error(t, err)
			require.Equal(t, tt.wantCode, pollgate.AsVoteError(err, "").Code)
		})
	}
}

func TestNegotiatePicksFirstSupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "yes", r.URL.Query().Get("side"))
		require.Equal(t, "0.05", r.URL.Query().Get("slippage"))
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"x402Version":1,"accepts":[
			{"scheme":"exact","network":"eip155:8453","payTo":"evm","maxAmountRequired":"1","asset":"evm-asset"},
			{"scheme":"exact","network":"solana-devnet","payTo":"sol","maxAmountRequired":"10500000","asset":"sol-asset"},
			{"scheme":"exact","network":"solana","payTo":"other","maxAmountRequired":"2","asset":"other-asset"}
		]}`)
	}))
	defer server.Close()

	client := New(server.URL, newIdentity(t), stubSource{})
	requirement, err := client.Negotiate(context.Background(), NewVoteRequest("p1", pollgate.SideYes))
	require.NoError(t, err)
	require.Equal(t, "sol", requirement.PayTo)
	require.Equal(t, "10500000", requirement.MaxAmountRequired)
}

func TestCastVoteHappyPath(t *testing.T) {
	identity := newIdentity(t)
	feePayer := solana.NewWallet().PublicKey().String()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proofToken := r.Header.Get(PaymentHeader)
		if proofToken == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(challengeBody(feePayer))
			return
		}

		// The proof must decode to a v1 payload carrying a transaction.
		proofJSON, err := base64.StdEncoding.DecodeString(proofToken)
		require.NoError(t, err)
		var proof pollgate.PaymentProof
		require.NoError(t, json.Unmarshal(proofJSON, &proof))
		require.Equal(t, pollgate.ProtocolVersion, proof.X402Version)
		require.Equal(t, pollgate.SchemeExact, proof.Scheme)
		require.NotEmpty(t, proof.Payload.Transaction)

		fmt.Fprint(w, `{
			"vote_id": "vote-1",
			"transaction_signature": "sig-1",
			"amount_paid_usdc_base_units": 10500000,
			"quoted_amount_usdc_base_units": "10000000",
			"actual_slippage": 0.05,
			"voter_pubkey": "`+identityPubkey(identity)+`",
			"side": "yes",
			"poll_id": "p1",
			"timestamp": "2026-01-02T03:04:05Z"
		}`)
	}))
	defer server.Close()

	source := stubSource{tx: transferTx(t, identity.PublicKey())}
	client := New(server.URL, identity, source)

	outcome := client.CastVote(context.Background(), NewVoteRequest("p1", pollgate.SideYes))
	require.Nil(t, outcome.Err)
	require.True(t, outcome.Success())
	require.NotEmpty(t, outcome.AttemptID)
	require.Equal(t, pollgate.ConfirmationSkipped, outcome.Confirmation)

	receipt := outcome.Receipt
	require.Equal(t, "vote-1", receipt.VoteID)
	require.Equal(t, "10.5", receipt.AmountPaidUSDC.String())
	require.Equal(t, "10", receipt.QuotedAmountUSDC.String())
	require.Equal(t, "5", receipt.SlippagePercent.String())
	require.Equal(t, pollgate.SideYes, receipt.Side)
}

func identityPubkey(id *wallet.Identity) string {
	return id.PublicKey().String()
}

func TestCastVoteSlippageBreach(t *testing.T) {
	identity := newIdentity(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(PaymentHeader) == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(challengeBody(solana.NewWallet().PublicKey().String()))
			return
		}
		// A 409 never becomes a success, even with payout-shaped fields.
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error":"entry fee moved","amount_paid_usdc_base_units":10500000,"vote_id":"v9"}`)
	}))
	defer server.Close()

	client := New(server.URL, identity, stubSource{tx: transferTx(t, identity.PublicKey())})
	outcome := client.CastVote(context.Background(), NewVoteRequest("p1", pollgate.SideNo))

	require.False(t, outcome.Success())
	require.Equal(t, pollgate.ErrCodeSlippageExceeded, outcome.Err.Code)
}

func TestCastVoteSubmissionTransportFailure(t *testing.T) {
	identity := newIdentity(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(PaymentHeader) == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(challengeBody(solana.NewWallet().PublicKey().String()))
			return
		}
		// Kill the connection mid-submission: the transfer may or may not
		// have landed, and the client must say so.
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer server.Close()

	client := New(server.URL, identity, stubSource{tx: transferTx(t, identity.PublicKey())})
	outcome := client.CastVote(context.Background(), NewVoteRequest("p1", pollgate.SideYes))

	require.False(t, outcome.Success())
	require.Equal(t, pollgate.ErrCodeSubmissionOutcomeUnknown, outcome.Err.Code)
	require.NotContains(t, outcome.Err.Code, "success")
}

func TestCastVoteAcceptedButUnparseableResult(t *testing.T) {
	identity := newIdentity(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(PaymentHeader) == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(challengeBody(solana.NewWallet().PublicKey().String()))
			return
		}
		// The vote was accepted and paid; only the receipt is garbage.
		fmt.Fprint(w, `<html>gateway error</html>`)
	}))
	defer server.Close()

	client := New(server.URL, identity, stubSource{tx: transferTx(t, identity.PublicKey())})
	outcome := client.CastVote(context.Background(), NewVoteRequest("p1", pollgate.SideYes))

	require.False(t, outcome.Success())
	require.Equal(t, pollgate.ErrCodeSubmissionOutcomeUnknown, outcome.Err.Code)
	require.False(t, outcome.Err.RetrySafe(), "a retry here would pay the entry fee twice")
}

func TestCastVoteDuplicateAtSubmission(t *testing.T) {
	identity := newIdentity(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(PaymentHeader) == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(challengeBody(solana.NewWallet().PublicKey().String()))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"already voted"}`)
	}))
	defer server.Close()

	client := New(server.URL, identity, stubSource{tx: transferTx(t, identity.PublicKey())})
	outcome := client.CastVote(context.Background(), NewVoteRequest("p1", pollgate.SideYes))

	require.False(t, outcome.Success())
	require.Equal(t, pollgate.ErrCodeDuplicateVote, outcome.Err.Code)
	require.False(t, outcome.Err.RetrySafe())
}

func TestCastVoteValidatesInput(t *testing.T) {
	identity := newIdentity(t)
	client := New("http://invalid.test", identity, stubSource{})

	tests := []struct {
		name string
		req  pollgate.VoteRequest
	}{
		{name: "bad side", req: pollgate.VoteRequest{PollID: "p1", Side: "maybe", Slippage: 0.05}},
		{name: "missing poll", req: pollgate.VoteRequest{Side: pollgate.SideYes, Slippage: 0.05}},
		{name: "slippage above one", req: pollgate.VoteRequest{PollID: "p1", Side: pollgate.SideYes, Slippage: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := client.CastVote(context.Background(), tt.req)
			require.False(t, outcome.Success())
			require.Equal(t, pollgate.ErrCodeInvalidRequest, outcome.Err.Code)
		})
	}
}

func TestCastVoteRejection(t *testing.T) {
	identity := newIdentity(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(PaymentHeader) == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(challengeBody(solana.NewWallet().PublicKey().String()))
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"transaction simulation failed"}`)
	}))
	defer server.Close()

	client := New(server.URL, identity, stubSource{tx: transferTx(t, identity.PublicKey())})
	outcome := client.CastVote(context.Background(), NewVoteRequest("p1", pollgate.SideYes))

	require.False(t, outcome.Success())
	require.Equal(t, pollgate.ErrCodeVoteRejected, outcome.Err.Code)
	require.Contains(t, outcome.Err.Detail, "transaction simulation failed")
}
