// Package tools exposes the agent's two data operations behind a JSON
// call surface usable by function-calling models. Both tools are stateless
// and idempotent: the same arguments against the same ledger and index
// always produce the same reply.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/irishask/financial-ai-agent/internal/model"
	"github.com/irishask/financial-ai-agent/internal/queryengine"
	"github.com/irishask/financial-ai-agent/internal/resolver"
)

// Tool names.
const (
	SearchCategoriesTool  = "search_transaction_categories"
	QueryTransactionsTool = "query_transactions"
)

// SnapshotProvider supplies the ledger the query tool executes against.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) ([]model.TransactionRecord, error)
}

// Registry dispatches tool calls by name and publishes their schemas.
type Registry struct {
	resolver *resolver.Resolver
	ledger   SnapshotProvider
}

// NewRegistry wires the tool surface to its backing collaborators.
func NewRegistry(r *resolver.Resolver, ledger SnapshotProvider) *Registry {
	return &Registry{resolver: r, ledger: ledger}
}

// searchArgs are the arguments for search_transaction_categories.
type searchArgs struct {
	Terms []string `json:"terms"`
}

// queryArgs mirror model.QuerySpec; kept separate so the tool schema can
// evolve independently of the internal type.
type queryArgs struct {
	model.QuerySpec
}

// Definitions returns the function schemas for the chat completions API.
func (r *Registry) Definitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        SearchCategoriesTool,
				Description: "Map free-text spending terms to ledger category candidates ranked by semantic similarity. Returns both category groups (CG-prefixed ids) and subcategories (C-prefixed ids) with distances and confidence buckets.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"terms": {
							"type": "array",
							"items": {"type": "string"},
							"description": "Free-text category terms, e.g. [\"coffee\", \"groceries\"]"
						}
					},
					"required": ["terms"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        QueryTransactionsTool,
				Description: "Filter the transaction ledger and compute aggregates. Dates are ISO 8601 and inclusive on both ends. Amount bounds compare against absolute values. category_group_ids and sub_category_ids are mutually exclusive.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"user_id": {"type": "string"},
						"start_date": {"type": "string", "format": "date-time"},
						"end_date": {"type": "string", "format": "date-time"},
						"account_ids": {"type": "array", "items": {"type": "string"}},
						"category_group_ids": {"type": "array", "items": {"type": "string"}},
						"sub_category_ids": {"type": "array", "items": {"type": "string"}},
						"min_amount": {"type": "number"},
						"max_amount": {"type": "number"},
						"direction": {"type": "string", "enum": ["D", "C", "BOTH"]},
						"sort_by": {"type": "string", "enum": ["date_asc", "date_desc"]},
						"limit": {"type": "integer"}
					},
					"required": ["user_id"]
				}`),
			},
		},
	}
}

// Dispatch executes one named tool call and returns its JSON reply.
// Argument and execution failures come back as errors for the caller to
// surface; they are never silently swallowed into a fake reply.
func (r *Registry) Dispatch(ctx context.Context, name string, arguments string) (string, error) {
	switch name {
	case SearchCategoriesTool:
		var args searchArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("decoding %s arguments: %w", name, err)
		}
		return r.searchCategories(ctx, args)
	case QueryTransactionsTool:
		var args queryArgs
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("decoding %s arguments: %w", name, err)
		}
		return r.queryTransactions(ctx, args)
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

func (r *Registry) searchCategories(ctx context.Context, args searchArgs) (string, error) {
	if r.resolver == nil {
		return "", fmt.Errorf("category resolver is not configured")
	}
	matches, err := r.resolver.Resolve(ctx, args.Terms)
	if err != nil {
		return "", err
	}
	reply, err := json.Marshal(struct {
		Matches []model.CategoryMatch `json:"matches"`
	}{Matches: matches})
	if err != nil {
		return "", fmt.Errorf("encoding search reply: %w", err)
	}
	return string(reply), nil
}

func (r *Registry) queryTransactions(ctx context.Context, args queryArgs) (string, error) {
	ledger, err := r.ledger.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("loading ledger snapshot: %w", err)
	}
	result, err := queryengine.Execute(args.QuerySpec, ledger)
	if err != nil {
		return "", err
	}
	reply, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encoding query reply: %w", err)
	}
	return string(reply), nil
}
