// Package vote implements the payment-gated vote execution protocol: one
// linear pass of negotiate, build, sign, submit, normalize per attempt. No
// state survives an attempt and no step is ever retried automatically.
package vote

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	pollgate "github.com/pollgate/pollgate-go"
	"github.com/pollgate/pollgate-go/logger"
	"github.com/pollgate/pollgate-go/metrics"
	"github.com/pollgate/pollgate-go/svm"
	"github.com/pollgate/pollgate-go/wallet"
)

// PaymentHeader carries the encoded proof on the resubmitted vote request.
const PaymentHeader = "X-Payment"

const defaultHTTPTimeout = 30 * time.Second

// Client drives vote attempts against one API deployment.
type Client struct {
	baseURL    string
	identity   *wallet.Identity
	source     svm.TransactionSource
	ledger     svm.Ledger
	httpClient *http.Client
	log        logger.Logger
	rec        metrics.Recorder
	validate   *validator.Validate

	confirm        bool
	confirmTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Per-call timeouts come
// from this client and from the caller's context.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets the structured logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(c *Client) { c.rec = rec }
}

// WithConfirmation enables waiting for on-chain finality after a successful
// submission, polling the given ledger for at most timeout. Confirmation
// failure never fails the vote; it surfaces as ConfirmationPending.
func WithConfirmation(ledger svm.Ledger, timeout time.Duration) Option {
	return func(c *Client) {
		c.ledger = ledger
		c.confirm = true
		c.confirmTimeout = timeout
	}
}

// New creates a vote client. baseURL is the API root (no trailing slash),
// identity the holder's signing identity, source the transaction source
// (local builder or remote facilitator).
func New(baseURL string, identity *wallet.Identity, source svm.TransactionSource, opts ...Option) *Client {
	c := &Client{
		baseURL:        baseURL,
		identity:       identity,
		source:         source,
		httpClient:     &http.Client{Timeout: defaultHTTPTimeout},
		log:            logger.Noop{},
		rec:            metrics.Noop{},
		validate:       validator.New(),
		confirmTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewVoteRequest builds a request with the default slippage tolerance.
func NewVoteRequest(pollID string, side pollgate.Side) pollgate.VoteRequest {
	return pollgate.VoteRequest{PollID: pollID, Side: side, Slippage: pollgate.DefaultSlippage}
}

// CastVote runs one full vote attempt. It always returns a VoteOutcome;
// every failure path is a classified value, never a raised fault.
func (c *Client) CastVote(ctx context.Context, req pollgate.VoteRequest) pollgate.VoteOutcome {
	attemptID := uuid.NewString()
	outcome := pollgate.VoteOutcome{AttemptID: attemptID, Confirmation: pollgate.ConfirmationSkipped}

	fail := func(err error, fallbackCode string) pollgate.VoteOutcome {
		outcome.Err = pollgate.AsVoteError(err, fallbackCode)
		c.rec.IncOutcome(outcome.Err.Code)
		c.log.Warn("vote attempt failed", map[string]any{
			"attemptId": attemptID,
			"pollId":    req.PollID,
			"code":      outcome.Err.Code,
			"detail":    outcome.Err.Detail,
		})
		return outcome
	}

	if err := c.validate.Struct(req); err != nil {
		return fail(pollgate.NewVoteErrorf(pollgate.ErrCodeInvalidRequest,
			"invalid vote request", "%v", err), pollgate.ErrCodeInvalidRequest)
	}

	c.log.Debug("negotiating payment challenge", map[string]any{
		"attemptId": attemptID,
		"pollId":    req.PollID,
		"side":      req.Side,
		"slippage":  req.Slippage,
	})

	start := time.Now()
	requirement, err := c.Negotiate(ctx, req)
	c.rec.ObserveStep(metrics.StepNegotiate, time.Since(start))
	if err != nil {
		return fail(err, pollgate.ErrCodeNetworkError)
	}

	c.log.Debug("building transfer transaction", map[string]any{
		"attemptId": attemptID,
		"amount":    requirement.MaxAmountRequired,
		"payTo":     requirement.PayTo,
		"network":   requirement.Network,
	})

	start = time.Now()
	tx, err := c.source.Build(ctx, requirement, c.identity.PublicKey())
	c.rec.ObserveStep(metrics.StepBuild, time.Since(start))
	if err != nil {
		return fail(err, pollgate.ErrCodeBuildFailed)
	}

	start = time.Now()
	signedTx, err := c.identity.Sign(tx)
	c.rec.ObserveStep(metrics.StepSign, time.Since(start))
	if err != nil {
		return fail(err, pollgate.ErrCodeSignFailed)
	}

	start = time.Now()
	raw, err := c.Submit(ctx, req, requirement, signedTx)
	c.rec.ObserveStep(metrics.StepSubmit, time.Since(start))
	if err != nil {
		return fail(err, pollgate.ErrCodeVoteRejected)
	}

	outcome.Receipt = normalize(raw)
	c.rec.IncOutcome("success")
	c.log.Info("vote accepted", map[string]any{
		"attemptId": attemptID,
		"voteId":    outcome.Receipt.VoteID,
		"signature": outcome.Receipt.TransactionSignature,
		"paidUsdc":  outcome.Receipt.AmountPaidUSDC.String(),
	})

	if c.confirm && c.ledger != nil {
		start = time.Now()
		outcome.Confirmation = c.awaitFinality(ctx, outcome.Receipt.TransactionSignature)
		c.rec.ObserveStep(metrics.StepConfirm, time.Since(start))
	}

	return outcome
}
