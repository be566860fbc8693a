package model

import "time"

// SortOrder controls ordering of returned transactions.
type SortOrder string

const (
	// SortDateAsc sorts by date, oldest first.
	SortDateAsc SortOrder = "date_asc"
	// SortDateDesc sorts by date, newest first.
	SortDateDesc SortOrder = "date_desc"
)

// Valid reports whether s is a recognized sort order.
func (s SortOrder) Valid() bool {
	switch s {
	case SortDateAsc, SortDateDesc, "":
		return true
	}
	return false
}

// QuerySpec is a declarative filter specification over the transaction
// ledger. Pure value object: constructed fresh per query, never mutated,
// no identity beyond structural equality.
type QuerySpec struct {
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	MinAmount        *float64   `json:"min_amount,omitempty"`
	MaxAmount        *float64   `json:"max_amount,omitempty"`
	Limit            *int       `json:"limit,omitempty"`
	UserID           string     `json:"user_id"`
	Direction        Direction  `json:"direction,omitempty"`
	Sort             SortOrder  `json:"sort_by,omitempty"`
	AccountIDs       []string   `json:"account_ids,omitempty"`
	CategoryGroupIDs []string   `json:"category_group_ids,omitempty"`
	SubCategoryIDs   []string   `json:"sub_category_ids,omitempty"`
}

// QueryResult is the deterministic product of applying a QuerySpec to a
// ledger snapshot. Aggregates describe the full filtered set before any
// limit is applied; Transactions carries the sorted, limited rows.
//
// Avg/Min/MaxAmount are nil (not zero) when no rows matched; callers rely
// on that distinction for correct "no spending" messaging.
type QueryResult struct {
	AvgAmount    *float64            `json:"avg_amount,omitempty"`
	MinAmount    *float64            `json:"min_amount,omitempty"`
	MaxAmount    *float64            `json:"max_amount,omitempty"`
	Transactions []TransactionRecord `json:"transactions"`
	Count        int                 `json:"total_count"`
	TotalDebit   float64             `json:"total_debit_amount"`
	TotalCredit  float64             `json:"total_credit_amount"`
	Net          float64             `json:"net_amount"`
}
