// Package queryengine applies declarative filter specifications to a
// transaction ledger snapshot and computes aggregates. It is intentionally
// dumb: no understanding of "recent", "large", or "coffee", only the
// explicit filters it is handed. All interpretation lives upstream.
package queryengine

import (
	"fmt"
	"sort"

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/model"
)

// Validate rejects malformed filter combinations before any work happens.
// A rejected spec is never silently "fixed" by guessing intent.
func Validate(spec model.QuerySpec) error {
	if spec.UserID == "" {
		return fmt.Errorf("%w: user_id is required", common.ErrQuerySpecInvalid)
	}
	if spec.StartDate != nil && spec.EndDate != nil && spec.StartDate.After(*spec.EndDate) {
		return fmt.Errorf("%w: start_date %s is after end_date %s",
			common.ErrQuerySpecInvalid,
			spec.StartDate.Format("2006-01-02"),
			spec.EndDate.Format("2006-01-02"))
	}
	if len(spec.CategoryGroupIDs) > 0 && len(spec.SubCategoryIDs) > 0 {
		return fmt.Errorf("%w: category_group_ids and sub_category_ids cannot both be set",
			common.ErrQuerySpecInvalid)
	}
	if spec.MinAmount != nil && spec.MaxAmount != nil && *spec.MinAmount > *spec.MaxAmount {
		return fmt.Errorf("%w: min_amount %.2f exceeds max_amount %.2f",
			common.ErrQuerySpecInvalid, *spec.MinAmount, *spec.MaxAmount)
	}
	if spec.MinAmount != nil && *spec.MinAmount < 0 {
		return fmt.Errorf("%w: min_amount cannot be negative", common.ErrQuerySpecInvalid)
	}
	if spec.Limit != nil && *spec.Limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", common.ErrQuerySpecInvalid)
	}
	if !spec.Direction.Valid() {
		return fmt.Errorf("%w: unknown direction %q", common.ErrQuerySpecInvalid, spec.Direction)
	}
	if !spec.Sort.Valid() {
		return fmt.Errorf("%w: unknown sort order %q", common.ErrQuerySpecInvalid, spec.Sort)
	}
	return nil
}

// Execute filters the ledger snapshot deterministically and computes
// aggregates. Filters apply in a fixed order: user scope, account scope,
// date range (inclusive both ends), category scope, absolute amount
// bounds, direction. Aggregates describe the full filtered set; sort and
// limit shape only the returned rows.
//
// A category id matching no ledger rows is not an error: it yields a
// zero-match result with count 0 and nil avg/min/max.
func Execute(spec model.QuerySpec, ledger []model.TransactionRecord) (model.QueryResult, error) {
	if err := Validate(spec); err != nil {
		return model.QueryResult{}, err
	}

	filtered := make([]model.TransactionRecord, 0, len(ledger))
	for _, rec := range ledger {
		if matches(spec, rec) {
			filtered = append(filtered, rec)
		}
	}

	result := aggregate(filtered)

	switch spec.Sort {
	case model.SortDateAsc:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Date.Before(filtered[j].Date) })
	case model.SortDateDesc:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Date.After(filtered[j].Date) })
	}

	if spec.Limit != nil && *spec.Limit < len(filtered) {
		filtered = filtered[:*spec.Limit]
	}

	result.Transactions = filtered
	return result, nil
}

func matches(spec model.QuerySpec, rec model.TransactionRecord) bool {
	if rec.UserID != spec.UserID {
		return false
	}
	if len(spec.AccountIDs) > 0 && !containsString(spec.AccountIDs, rec.AccountID) {
		return false
	}
	if spec.StartDate != nil && rec.Date.Before(*spec.StartDate) {
		return false
	}
	// Ledger dates are day-granularity, so After gives an inclusive end.
	if spec.EndDate != nil && rec.Date.After(*spec.EndDate) {
		return false
	}
	if len(spec.CategoryGroupIDs) > 0 && !containsString(spec.CategoryGroupIDs, rec.CategoryGroupID) {
		return false
	}
	if len(spec.SubCategoryIDs) > 0 && !containsString(spec.SubCategoryIDs, rec.SubCategoryID) {
		return false
	}
	abs := rec.AbsAmount()
	if spec.MinAmount != nil && abs < *spec.MinAmount {
		return false
	}
	if spec.MaxAmount != nil && abs > *spec.MaxAmount {
		return false
	}
	switch spec.Direction {
	case model.DirectionDebit:
		if rec.Direction != model.DirectionDebit {
			return false
		}
	case model.DirectionCredit:
		if rec.Direction != model.DirectionCredit {
			return false
		}
	}
	return true
}

func aggregate(rows []model.TransactionRecord) model.QueryResult {
	result := model.QueryResult{Count: len(rows)}
	if len(rows) == 0 {
		// Zero-match: sums stay 0.0, avg/min/max stay nil. The nil-vs-zero
		// distinction drives correct "no spending" messaging downstream.
		return result
	}

	var absSum float64
	minAbs := rows[0].AbsAmount()
	maxAbs := minAbs
	for _, rec := range rows {
		abs := rec.AbsAmount()
		switch rec.Direction {
		case model.DirectionDebit:
			result.TotalDebit += abs
		case model.DirectionCredit:
			result.TotalCredit += abs
		}
		absSum += abs
		if abs < minAbs {
			minAbs = abs
		}
		if abs > maxAbs {
			maxAbs = abs
		}
	}
	result.Net = result.TotalCredit - result.TotalDebit

	avg := absSum / float64(len(rows))
	result.AvgAmount = &avg
	result.MinAmount = &minAbs
	result.MaxAmount = &maxAbs
	return result
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
