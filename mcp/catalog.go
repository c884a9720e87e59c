// Package mcp exposes the fixed tool catalog (poll queries plus the
// payment-gated cast_vote) to agent frameworks over the Model Context
// Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	pollgate "github.com/pollgate/pollgate-go"
	"github.com/pollgate/pollgate-go/polls"
	"github.com/pollgate/pollgate-go/vote"
)

// Catalog bundles the clients behind the tool surface.
type Catalog struct {
	Votes *vote.Client
	Polls *polls.Client
}

// ListPollsInput narrows the poll listing.
type ListPollsInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter polls by status (open, resolved)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of polls to return"`
	Cursor string `json:"cursor,omitempty" jsonschema:"pagination cursor from a previous page"`
}

// GetPollInput identifies one poll.
type GetPollInput struct {
	PollID string `json:"pollId" jsonschema:"poll identifier"`
}

// GetPositionInput identifies one holder's stake on one poll.
type GetPositionInput struct {
	PollID string `json:"pollId" jsonschema:"poll identifier"`
	Voter  string `json:"voter" jsonschema:"voter public key"`
}

// GetStatsInput has no parameters.
type GetStatsInput struct{}

// CastVoteInput describes one payment-gated vote attempt.
type CastVoteInput struct {
	PollID   string  `json:"pollId" jsonschema:"poll identifier"`
	Side     string  `json:"side" jsonschema:"vote side, yes or no"`
	Slippage float64 `json:"slippage,omitempty" jsonschema:"slippage tolerance as a fraction, default 0.05"`
}

// NewServer builds an MCP server carrying the full tool catalog.
func NewServer(catalog Catalog, name, version string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: name, Version: version}, nil)
	AddTools(server, catalog)
	return server
}

// AddTools registers the tool catalog on an existing MCP server.
func AddTools(server *mcpsdk.Server, catalog Catalog) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "list_polls",
		Description: "List governance polls, optionally filtered by status.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in ListPollsInput) (*mcpsdk.CallToolResult, *polls.PollPage, error) {
		page, err := catalog.Polls.ListPolls(ctx, polls.ListFilters{Status: in.Status, Limit: in.Limit, Cursor: in.Cursor})
		if err != nil {
			return nil, nil, err
		}
		return textResult(page), page, nil
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "get_poll",
		Description: "Fetch the full state of one poll.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in GetPollInput) (*mcpsdk.CallToolResult, *polls.PollDetails, error) {
		details, err := catalog.Polls.GetPoll(ctx, in.PollID)
		if err != nil {
			return nil, nil, err
		}
		return textResult(details), details, nil
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "get_position",
		Description: "Fetch a voter's position on a poll.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in GetPositionInput) (*mcpsdk.CallToolResult, *polls.Position, error) {
		position, err := catalog.Polls.GetPosition(ctx, in.PollID, in.Voter)
		if err != nil {
			return nil, nil, err
		}
		return textResult(position), position, nil
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "get_stats",
		Description: "Fetch platform-wide poll statistics.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in GetStatsInput) (*mcpsdk.CallToolResult, *polls.Stats, error) {
		stats, err := catalog.Polls.GetStats(ctx)
		if err != nil {
			return nil, nil, err
		}
		return textResult(stats), stats, nil
	})

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "cast_vote",
		Description: "Cast a payment-gated vote on a poll. Pays the quoted USDC entry fee on Solana and returns the vote outcome.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in CastVoteInput) (*mcpsdk.CallToolResult, *pollgate.VoteOutcome, error) {
		voteReq := vote.NewVoteRequest(in.PollID, pollgate.Side(in.Side))
		if in.Slippage > 0 {
			voteReq.Slippage = in.Slippage
		}

		// CastVote never raises; failures come back as classified
		// outcome values for the agent to branch on.
		outcome := catalog.Votes.CastVote(ctx, voteReq)
		result := textResult(outcome)
		result.IsError = !outcome.Success()
		return result, &outcome, nil
	})
}

func textResult(v interface{}) *mcpsdk.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}
}
