package router

import (
	"context"
	"fmt"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// ScriptedClient replays canned classifications in order. It exists for
// tests and for the offline demo mode of the CLI, where real model calls
// are unavailable.
type ScriptedClient struct {
	Results []*model.ClassificationResult
	Errs    []error
	calls   int
}

// Classify returns the next scripted result. Running past the script is a
// test bug and reported as an error rather than a panic.
func (s *ScriptedClient) Classify(_ context.Context, _ string, _ *model.ConversationSummary) (*model.ClassificationResult, error) {
	i := s.calls
	s.calls++
	if i < len(s.Errs) && s.Errs[i] != nil {
		return nil, s.Errs[i]
	}
	if i >= len(s.Results) {
		return nil, fmt.Errorf("scripted client exhausted after %d calls", len(s.Results))
	}
	return s.Results[i], nil
}

// Calls reports how many classifications were requested.
func (s *ScriptedClient) Calls() int { return s.calls }
