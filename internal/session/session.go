// Package session runs the conversational turn pipeline: classify,
// validate, resolve, execute, answer, audit, merge. One Session per
// conversation; turns are serialized by a mutex so preference merges and
// turn ids never race.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/irishask/financial-ai-agent/internal/audit"
	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/model"
	"github.com/irishask/financial-ai-agent/internal/preferences"
	"github.com/irishask/financial-ai-agent/internal/queryengine"
	"github.com/irishask/financial-ai-agent/internal/resolver"
	"github.com/irishask/financial-ai-agent/internal/router"
)

// userIDPattern extracts an inline user identification such as
// "I am USER_042." from the query text.
var userIDPattern = regexp.MustCompile(`\b(USER_\d+)\b`)

// categoryTermPattern pulls candidate category terms out of a query when
// the classifier marked the category axis but resolved nothing itself.
var categoryTermPattern = regexp.MustCompile(`[a-zA-Z]+`)

// SnapshotProvider supplies the ledger snapshot a turn executes against.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) ([]model.TransactionRecord, error)
}

// TurnOutcome is what one call to HandleTurn produces: the user-facing
// reply plus the complete audit record. Vague turns carry the clarifying
// question as the answer.
type TurnOutcome struct {
	Answer        string
	Clarity       model.Clarity
	BackofficeLog model.BackofficeLog
}

// Session holds one conversation's accumulated state and collaborators.
type Session struct {
	mu       sync.Mutex
	id       string
	turnID   int
	userID   string
	summary  *model.ConversationSummary
	history  []model.ClarificationStep
	pending  string // unanswered clarifying question, if any
	classify router.Client
	resolve  *resolver.Resolver
	ledger   SnapshotProvider
}

// Config wires a session's collaborators.
type Config struct {
	Router      router.Client
	Resolver    *resolver.Resolver
	Ledger      SnapshotProvider
	DefaultUser string
}

// New creates a session. DefaultUser scopes queries until the user
// identifies differently in-conversation.
func New(cfg Config) (*Session, error) {
	if cfg.Router == nil {
		return nil, errors.New("router client is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("ledger snapshot provider is required")
	}
	return &Session{
		id:       uuid.NewString(),
		userID:   cfg.DefaultUser,
		summary:  model.NewConversationSummary(),
		classify: cfg.Router,
		resolve:  cfg.Resolver,
		ledger:   cfg.Ledger,
	}, nil
}

// ID returns the stable session identifier.
func (s *Session) ID() string { return s.id }

// Summary exposes the current preference store, for inspection and display.
func (s *Session) Summary() *model.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// HandleTurn runs one user query through the full pipeline. It never
// returns an error for a degraded turn: classification failures, contract
// violations, and ledger faults all produce a fallback outcome with the
// failure recorded in the audit log. Errors are reserved for unusable
// input (nil context, empty query) where no turn exists to audit.
func (s *Session) HandleTurn(ctx context.Context, query string) (*TurnOutcome, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turnID++
	trace := audit.New(s.id, s.turnID, query)

	// If the previous turn asked a clarifying question, this query answers it.
	if s.pending != "" {
		s.history = append(s.history, model.ClarificationStep{
			Question:   s.pending,
			UserAnswer: query,
			TurnID:     s.turnID,
		})
		s.pending = ""
	}
	trace.AttachClarifications(s.history)

	if id := userIDPattern.FindString(query); id != "" {
		s.userID = id
		trace.Step("user identified as %s", id)
	}

	classification, err := s.classify.Classify(ctx, query, s.summary)
	if err != nil {
		slog.Warn("classification unavailable, degrading to clarification",
			"session_id", s.id, "turn_id", s.turnID, "error", err)
		classification = &model.ClassificationResult{
			Clarity:            model.ClarityVague,
			ClarifyingQuestion: "I could not process that question. Could you rephrase it?",
			MissingInfo:        []string{"error_recovery"},
			ClarityReason:      "classifier unavailable",
		}
		trace.RecordFailure("classification", failureKind(err), true)
	}

	router.Normalize(classification)
	if vErr := router.Validate(query, classification, s.summary); vErr != nil {
		slog.Info("classification failed contract validation",
			"session_id", s.id, "turn_id", s.turnID, "reason", vErr)
		trace.Step("classification rejected: %v", vErr)
		trace.RecordFailure("contract_validation", "invalid_classification", true)
		router.Downgrade(classification, vErr.Error())
	}
	trace.AttachClassification(classification)

	// Preference updates persist whatever the turn's clarity: a vague turn
	// can still define a term while it asks its question, and a same-turn
	// definition must be visible to the execution below.
	if delta := preferences.ParseDelta(classification.SummaryUpdate); !delta.Empty() {
		preferences.Merge(s.summary, delta, s.turnID, query)
	}
	trace.AttachPreferences(s.summary.Snapshot())

	if classification.Clarity == model.ClarityVague {
		s.pending = classification.ClarifyingQuestion
		return &TurnOutcome{
			Answer:        classification.ClarifyingQuestion,
			Clarity:       model.ClarityVague,
			BackofficeLog: trace.Finalize(classification.ClarifyingQuestion),
		}, nil
	}

	return s.executeClear(ctx, query, classification, trace)
}

// executeClear runs the execution half of the pipeline for a CLEAR turn.
func (s *Session) executeClear(ctx context.Context, query string, c *model.ClassificationResult, trace *audit.Builder) (*TurnOutcome, error) {
	matches, err := s.resolveCategories(ctx, query, c)
	if err != nil {
		// Resolution infrastructure is down. Degrade, never guess ids.
		slog.Warn("category resolution unavailable", "session_id", s.id, "error", err)
		answer := "I cannot look up spending categories right now. Please try again shortly."
		trace.RecordFailure("category_resolution", "resolution_unavailable", true)
		return &TurnOutcome{
			Answer:        answer,
			Clarity:       model.ClarityClear,
			BackofficeLog: trace.Finalize(answer),
		}, nil
	}
	trace.AttachResolution(matches)

	spec := s.buildSpec(query, c, matches)
	trace.Step("filter specification built for %s", spec.UserID)

	ledger, err := s.ledger.Snapshot(ctx)
	if err != nil {
		// No data source means nothing was recovered, but the audit record
		// still has to exist for this turn.
		slog.Error("ledger snapshot unavailable", "session_id", s.id, "turn_id", s.turnID, "error", err)
		trace.RecordFailure("ledger_snapshot", "ledger_unavailable", false)
		answer := "The transaction ledger is unavailable right now. Please try again shortly."
		return &TurnOutcome{
			Answer:        answer,
			Clarity:       model.ClarityClear,
			BackofficeLog: trace.Finalize(answer),
		}, nil
	}

	result, err := queryengine.Execute(spec, ledger)
	if err != nil {
		trace.Step("filter specification rejected: %v", err)
		trace.RecordFailure("query_execution", "invalid_spec", true)
		answer := "I could not turn that into a valid transaction query. Could you restate it?"
		return &TurnOutcome{
			Answer:        answer,
			Clarity:       model.ClarityClear,
			BackofficeLog: trace.Finalize(answer),
		}, nil
	}
	trace.AttachQuery(spec, result)

	answer := composeAnswer(c, spec, result, matches)
	return &TurnOutcome{
		Answer:        answer,
		Clarity:       model.ClarityClear,
		BackofficeLog: trace.Finalize(answer),
	}, nil
}

// resolveCategories prefers the classifier's own resolved categories and
// falls back to the local resolver when the category axis is marked but
// unresolved.
func (s *Session) resolveCategories(ctx context.Context, query string, c *model.ClassificationResult) ([]model.CategoryMatch, error) {
	if len(c.ResolvedCategories) > 0 {
		return c.ResolvedCategories, nil
	}
	if !c.HasUseCase(model.UseCaseCategory) || s.resolve == nil {
		return nil, nil
	}

	terms := candidateTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	all, err := s.resolve.Resolve(ctx, terms)
	if err != nil {
		return nil, err
	}

	// One preferred category per term, chosen by the level policy.
	byTerm := make(map[string][]model.CategoryMatch)
	for _, m := range all {
		byTerm[m.QueryTerm] = append(byTerm[m.QueryTerm], m)
	}
	var selected []model.CategoryMatch
	for _, term := range terms {
		if best := resolver.SelectPreferred(term, byTerm[term]); best != nil {
			selected = append(selected, *best)
		}
	}
	return selected, nil
}

// buildSpec assembles the declarative filter spec from the classification,
// resolved categories, and stored preferences.
func (s *Session) buildSpec(query string, c *model.ClassificationResult, matches []model.CategoryMatch) model.QuerySpec {
	spec := model.QuerySpec{UserID: s.userID}

	if c.ResolvedDates != nil {
		spec.StartDate = c.ResolvedDates.StartDate
		spec.EndDate = c.ResolvedDates.EndDate
	}

	if c.ResolvedAmountThreshold != nil {
		spec.MinAmount = c.ResolvedAmountThreshold
	} else if mentionsAmountThreshold(query) {
		if val, ok := preferences.Lookup(s.summary, "amount_threshold_large"); ok {
			if threshold, ok := asFloat(val); ok {
				spec.MinAmount = &threshold
			}
		}
	}

	if val, ok := preferences.Lookup(s.summary, "account_scope"); ok {
		if account, ok := val.(string); ok && account != "" {
			spec.AccountIDs = []string{account}
		}
	}

	// Group and subcategory filters are mutually exclusive; groups win when
	// both levels were matched because they subsume their subcategories.
	var groups, subs []string
	for _, m := range matches {
		if m.Category.IsGroup() {
			groups = appendUnique(groups, m.Category.ID)
		} else {
			subs = appendUnique(subs, m.Category.ID)
		}
	}
	if len(groups) > 0 {
		spec.CategoryGroupIDs = groups
	} else if len(subs) > 0 {
		spec.SubCategoryIDs = subs
	}

	if c.PrimaryUseCase == model.UseCaseDirectLookup {
		spec.Sort = model.SortDateDesc
	}
	return spec
}

// composeAnswer renders a deterministic reply from the query result. All
// numbers come from the engine; nothing is re-derived here.
func composeAnswer(c *model.ClassificationResult, spec model.QuerySpec, result model.QueryResult, matches []model.CategoryMatch) string {
	scope := describeScope(spec, matches)

	if result.Count == 0 {
		return fmt.Sprintf("No transactions found%s.", scope)
	}

	if c.PrimaryUseCase == model.UseCaseAggregation {
		var b strings.Builder
		fmt.Fprintf(&b, "Found %s%s.", countNoun(result.Count), scope)
		if result.TotalDebit > 0 {
			fmt.Fprintf(&b, " Total spending: %.2f.", result.TotalDebit)
		}
		if result.TotalCredit > 0 {
			fmt.Fprintf(&b, " Total income: %.2f.", result.TotalCredit)
		}
		fmt.Fprintf(&b, " Net: %.2f.", result.Net)
		if result.AvgAmount != nil {
			fmt.Fprintf(&b, " Average amount: %.2f (min %.2f, max %.2f).",
				*result.AvgAmount, *result.MinAmount, *result.MaxAmount)
		}
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %s%s.", countNoun(result.Count), scope)
	shown := len(result.Transactions)
	if shown < result.Count {
		fmt.Fprintf(&b, " Showing the first %d:", shown)
	}
	for _, rec := range result.Transactions {
		label := rec.SubCategoryName
		if label == "" {
			label = rec.CategoryName
		}
		if label == "" {
			label = "uncategorized"
		}
		fmt.Fprintf(&b, "\n  %s  %s %8.2f  %s",
			rec.Date.Format("2006-01-02"), rec.Direction, rec.AbsAmount(), label)
	}
	return b.String()
}

func countNoun(n int) string {
	if n == 1 {
		return "1 transaction"
	}
	return fmt.Sprintf("%d transactions", n)
}

func describeScope(spec model.QuerySpec, matches []model.CategoryMatch) string {
	var parts []string
	if names := matchNames(matches); len(names) > 0 {
		parts = append(parts, "for "+strings.Join(names, ", "))
	}
	switch {
	case spec.StartDate != nil && spec.EndDate != nil:
		parts = append(parts, fmt.Sprintf("between %s and %s",
			spec.StartDate.Format("2006-01-02"), spec.EndDate.Format("2006-01-02")))
	case spec.StartDate != nil:
		parts = append(parts, "since "+spec.StartDate.Format("2006-01-02"))
	case spec.EndDate != nil:
		parts = append(parts, "through "+spec.EndDate.Format("2006-01-02"))
	}
	if spec.MinAmount != nil {
		parts = append(parts, fmt.Sprintf("over %.2f", *spec.MinAmount))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func matchNames(matches []model.CategoryMatch) []string {
	var names []string
	for _, m := range matches {
		names = appendUnique(names, m.Category.Name)
	}
	return names
}

// candidateTerms extracts plausible category words from the query,
// skipping short function words.
func candidateTerms(query string) []string {
	stop := map[string]bool{
		"the": true, "and": true, "how": true, "much": true, "did": true,
		"spend": true, "spent": true, "show": true, "all": true, "for": true,
		"was": true, "what": true, "this": true, "that": true, "last": true,
		"month": true, "week": true, "year": true, "from": true, "with": true,
		"transactions": true, "purchases": true, "user": true, "about": true,
		"between": true, "over": true, "under": true, "total": true,
	}
	var terms []string
	for _, word := range categoryTermPattern.FindAllString(strings.ToLower(query), -1) {
		if len(word) < 3 || stop[word] {
			continue
		}
		terms = appendUnique(terms, word)
	}
	return terms
}

// mentionsAmountThreshold detects the subjective magnitude words that a
// stored amount_threshold_large preference gives meaning to.
func mentionsAmountThreshold(query string) bool {
	lower := strings.ToLower(query)
	for _, word := range []string{"large", "big", "expensive"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, common.ErrRouterUnavailable):
		return "router_unavailable"
	case errors.Is(err, common.ErrInvalidClassification):
		return "invalid_classification"
	default:
		return "classifier_error"
	}
}
