// Package audit assembles the back-office log for each turn. Every turn
// produces a structurally complete record, failure paths included; a missing
// audit entry is a compliance defect, not a degraded mode.
package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// Builder accumulates one turn's trace and produces the final log. It is
// append-only: sections attach as the pipeline reaches them, and whatever
// attached by the time of a failure is what the log carries.
type Builder struct {
	log model.BackofficeLog
}

// New starts a trace for one turn. Trace ids are unique per turn, session
// ids stable for the conversation.
func New(sessionID string, turnID int, userQuery string) *Builder {
	return &Builder{
		log: model.BackofficeLog{
			Timestamp:            time.Now().UTC(),
			TraceID:              uuid.NewString(),
			SessionID:            sessionID,
			TurnID:               turnID,
			UserQuery:            userQuery,
			ResolvedQuery:        map[string]any{},
			Analysis:             map[string]any{},
			PreferencesUsed:      map[string]model.PreferenceEntry{},
			ReasoningSteps:       []string{},
			ClarificationHistory: []model.ClarificationStep{},
			DataSources:          model.NewDataSources(),
		},
	}
}

// Step appends one reasoning step to the trace.
func (b *Builder) Step(format string, args ...any) *Builder {
	b.log.ReasoningSteps = append(b.log.ReasoningSteps, fmt.Sprintf(format, args...))
	return b
}

// AttachClassification records the router's verdict as this turn saw it.
func (b *Builder) AttachClassification(result *model.ClassificationResult) *Builder {
	b.log.RouterSnapshot = result
	if result != nil {
		b.log.Confidence = result.Confidence
		b.log.Analysis["clarity"] = string(result.Clarity)
		if result.PrimaryUseCase != "" {
			b.log.Analysis["primary_use_case"] = string(result.PrimaryUseCase)
		}
		if result.ClarityReason != "" {
			b.log.Analysis["clarity_reason"] = result.ClarityReason
		}
	}
	return b
}

// AttachResolution records the category evidence behind the executed query.
func (b *Builder) AttachResolution(matches []model.CategoryMatch) *Builder {
	if len(matches) == 0 {
		return b
	}
	evidence := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		evidence = append(evidence, map[string]any{
			"query_term": m.QueryTerm,
			"matched_id": m.Category.ID,
			"name":       m.Category.Name,
			"distance":   m.Distance,
			"confidence": string(m.Confidence),
		})
	}
	b.log.Analysis["resolved_categories"] = evidence
	return b
}

// AttachQuery records the executed filter spec as human-readable filter
// descriptions plus the result shape.
func (b *Builder) AttachQuery(spec model.QuerySpec, result model.QueryResult) *Builder {
	b.log.ResolvedQuery["spec"] = spec
	b.log.TransactionsAnalyzed = result.Count
	b.log.DataSources.TablesUsed = appendUnique(b.log.DataSources.TablesUsed, "transactions")
	b.log.DataSources.FiltersApplied = describeFilters(spec)
	b.log.DataSources.FieldsAccessed = fieldsForSpec(spec)
	if result.AvgAmount != nil {
		b.log.DataSources.AggregationsUsed = []string{"count", "total_debit", "total_credit", "net", "avg", "min", "max"}
	} else {
		b.log.DataSources.AggregationsUsed = []string{"count"}
	}
	return b
}

// AttachPreferences records the preference snapshot consulted this turn.
func (b *Builder) AttachPreferences(snap map[string]model.PreferenceEntry) *Builder {
	b.log.PreferencesUsed = snap
	return b
}

// AttachClarifications copies the session's clarification exchanges so far.
func (b *Builder) AttachClarifications(steps []model.ClarificationStep) *Builder {
	b.log.ClarificationHistory = append([]model.ClarificationStep{}, steps...)
	return b
}

// RecordFailure marks where and how the turn failed. Recovered means the
// turn still produced a user-facing reply (usually a clarification).
func (b *Builder) RecordFailure(stage, kind string, recovered bool) *Builder {
	b.log.FailureStage = stage
	b.log.FailureKind = kind
	b.log.Recovered = recovered
	return b
}

// Finalize seals the trace with the answer shown to the user and returns
// the completed log.
func (b *Builder) Finalize(answer string) model.BackofficeLog {
	b.log.Answer = answer
	if b.log.Confidence == "" {
		b.log.Confidence = model.ConfidenceLow
	}
	return b.log
}

// describeFilters renders a spec's active filters as short audit-friendly
// phrases, in the order they apply.
func describeFilters(spec model.QuerySpec) []string {
	filters := []string{fmt.Sprintf("user_id = %s", spec.UserID)}
	if len(spec.AccountIDs) > 0 {
		filters = append(filters, fmt.Sprintf("account_id in [%s]", strings.Join(spec.AccountIDs, ", ")))
	}
	switch {
	case spec.StartDate != nil && spec.EndDate != nil:
		filters = append(filters, fmt.Sprintf("date between %s and %s",
			spec.StartDate.Format("2006-01-02"), spec.EndDate.Format("2006-01-02")))
	case spec.StartDate != nil:
		filters = append(filters, fmt.Sprintf("date >= %s", spec.StartDate.Format("2006-01-02")))
	case spec.EndDate != nil:
		filters = append(filters, fmt.Sprintf("date <= %s", spec.EndDate.Format("2006-01-02")))
	}
	if len(spec.CategoryGroupIDs) > 0 {
		filters = append(filters, fmt.Sprintf("categoryGroupId in [%s]", strings.Join(spec.CategoryGroupIDs, ", ")))
	}
	if len(spec.SubCategoryIDs) > 0 {
		filters = append(filters, fmt.Sprintf("subCategoryId in [%s]", strings.Join(spec.SubCategoryIDs, ", ")))
	}
	if spec.MinAmount != nil {
		filters = append(filters, fmt.Sprintf("abs(amount) >= %.2f", *spec.MinAmount))
	}
	if spec.MaxAmount != nil {
		filters = append(filters, fmt.Sprintf("abs(amount) <= %.2f", *spec.MaxAmount))
	}
	if spec.Direction == model.DirectionDebit || spec.Direction == model.DirectionCredit {
		filters = append(filters, fmt.Sprintf("direction = %s", spec.Direction))
	}
	return filters
}

func fieldsForSpec(spec model.QuerySpec) []string {
	fields := map[string]bool{
		"user_id": true,
		"amount":  true,
	}
	if len(spec.AccountIDs) > 0 {
		fields["account_id"] = true
	}
	if spec.StartDate != nil || spec.EndDate != nil {
		fields["date"] = true
	}
	if len(spec.CategoryGroupIDs) > 0 {
		fields["category_group_id"] = true
	}
	if len(spec.SubCategoryIDs) > 0 {
		fields["sub_category_id"] = true
	}
	if spec.Direction == model.DirectionDebit || spec.Direction == model.DirectionCredit {
		fields["direction"] = true
	}
	out := make([]string, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
