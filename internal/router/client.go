package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/model"
)

// Client classifies one user query in the context of the running session.
type Client interface {
	Classify(ctx context.Context, query string, summary *model.ConversationSummary) (*model.ClassificationResult, error)
}

const classifierSystemPrompt = `You are the query classifier for a personal finance assistant.
Given the user's query and the session's stored preferences, return a JSON object with:
  clarity: "CLEAR" or "VAGUE"
  primary_use_case: one of direct_lookup, aggregation, temporal, category, ambiguity
  core_use_cases: array drawn from the same five values
  uc_operations: object keyed by use case, each an array of short operation descriptions
  uc_confidence: "High", "Medium", or "Low"
  resolved_dates: {start_date, end_date, interpretation} when the query implies a time range (ISO 8601 dates)
  resolved_amount_threshold: number when the query implies an amount cutoff
  summary_update: preference changes this query expresses (time_window, amount_threshold_large, account_scope, category_preferences)
  clarifying_question and missing_info: required when clarity is VAGUE
  clarity_reason, router_notes: short free text
Return only the JSON object.`

// OpenAIClient implements Client on the chat completions API with JSON
// response format. Calls retry on transient failures.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a classifier client. An empty model selects GPT-4o.
func NewOpenAIClient(apiKey, chatModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: router API key is required", common.ErrMissingConfig)
	}
	if chatModel == "" {
		chatModel = openai.GPT4o
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  chatModel,
	}, nil
}

// Classify sends the query plus a compact summary snapshot to the model and
// decodes its JSON reply. Errors wrap common.ErrRouterUnavailable so callers
// can fall back to a clarification turn.
func (c *OpenAIClient) Classify(ctx context.Context, query string, summary *model.ConversationSummary) (*model.ClassificationResult, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query cannot be empty")
	}

	userPayload, err := buildUserPayload(query, summary)
	if err != nil {
		return nil, fmt.Errorf("encoding classifier payload: %w", err)
	}

	var resp openai.ChatCompletionResponse
	err = common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPayload},
			},
		})
		if callErr != nil {
			var apiErr *openai.APIError
			if errors.As(callErr, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
				return fmt.Errorf("%w: %v", common.ErrRateLimit, callErr)
			}
			return &common.RetryableError{Err: callErr, Retryable: true}
		}
		return nil
	}, common.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRouterUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", common.ErrRouterUnavailable)
	}

	var result model.ClassificationResult
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		slog.Debug("classifier returned undecodable JSON", "error", err)
		return nil, fmt.Errorf("%w: decoding classification: %v", common.ErrInvalidClassification, err)
	}
	return &result, nil
}

func buildUserPayload(query string, summary *model.ConversationSummary) (string, error) {
	payload := struct {
		Query       string                           `json:"query"`
		Preferences map[string]model.PreferenceEntry `json:"stored_preferences"`
	}{
		Query:       query,
		Preferences: summary.Snapshot(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
