package svm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"

	pollgate "github.com/pollgate/pollgate-go"
)

const (
	headerContentType   = "Content-Type"
	mimeApplicationJSON = "application/json"
)

// FacilitatorSource delegates transaction construction to a remote
// facilitator service. The facilitator resolves holding accounts, creates
// the recipient account when needed, and returns the compiled, unsigned
// transaction; the voter's signature is still attached locally.
type FacilitatorSource struct {
	url        string
	httpClient *http.Client
}

// NewFacilitatorSource creates a remote transaction source. A nil
// httpClient uses http.DefaultClient.
func NewFacilitatorSource(url string, httpClient *http.Client) *FacilitatorSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &FacilitatorSource{url: url, httpClient: httpClient}
}

type buildRequest struct {
	X402Version         int                          `json:"x402Version"`
	Payer               string                       `json:"payer"`
	PaymentRequirements *pollgate.PaymentRequirement `json:"paymentRequirements"`
}

type buildResponse struct {
	Transaction string `json:"transaction"`
	Error       string `json:"error,omitempty"`
}

// Build asks the facilitator to compile the transfer transaction for the
// requirement, with the voter as token source.
func (f *FacilitatorSource) Build(ctx context.Context, requirement *pollgate.PaymentRequirement, voter solana.PublicKey) (*solana.Transaction, error) {
	if _, ok := requirement.FeePayer(); !ok {
		return nil, pollgate.NewVoteError(pollgate.ErrCodeMissingFeePayer,
			"feePayer is required in the requirement's extra map")
	}
	if requirement.Asset == "" {
		return nil, pollgate.NewVoteError(pollgate.ErrCodeMissingAsset,
			"payment requirement carries no asset identifier")
	}

	body, err := json.Marshal(buildRequest{
		X402Version:         pollgate.ProtocolVersion,
		Payer:               voter.String(),
		PaymentRequirements: requirement,
	})
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"failed to marshal build request", "%v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/build", f.url), bytes.NewReader(body))
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"failed to create build request", "%v", err)
	}
	req.Header.Set(headerContentType, mimeApplicationJSON)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeLedgerUnavailable,
			"facilitator unreachable", "%v", err)
	}
	defer resp.Body.Close()

	var out buildResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeLedgerUnavailable,
			"failed to decode facilitator response", "%v", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail := out.Error
		if detail == "" {
			detail = resp.Status
		}
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"facilitator refused to build transaction", "%s", detail)
	}

	txBytes, err := base64.StdEncoding.DecodeString(out.Transaction)
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"facilitator returned invalid base64 transaction", "%v", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(txBytes))
	if err != nil {
		return nil, pollgate.NewVoteErrorf(pollgate.ErrCodeBuildFailed,
			"facilitator returned undecodable transaction", "%v", err)
	}

	return tx, nil
}
