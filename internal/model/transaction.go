package model

import "time"

// Direction marks a transaction as spending or income.
type Direction string

const (
	// DirectionDebit is spending.
	DirectionDebit Direction = "D"
	// DirectionCredit is income.
	DirectionCredit Direction = "C"
	// DirectionBoth disables direction filtering in a QuerySpec.
	DirectionBoth Direction = "BOTH"
)

// Valid reports whether d is one of the recognized direction values.
func (d Direction) Valid() bool {
	switch d {
	case DirectionDebit, DirectionCredit, DirectionBoth, "":
		return true
	}
	return false
}

// TransactionRecord is one row of the transaction ledger. The ledger is an
// immutable snapshot per query; records are never mutated by this system.
type TransactionRecord struct {
	Date            time.Time `json:"date"`
	TransactionID   string    `json:"transaction_id"`
	UserID          string    `json:"user_id"`
	AccountID       string    `json:"account_id"`
	AccountType     string    `json:"account_type,omitempty"`
	DayOfWeek       string    `json:"day_of_week,omitempty"`
	CategoryGroupID string    `json:"category_group_id,omitempty"`
	CategoryName    string    `json:"category_name,omitempty"`
	SubCategoryID   string    `json:"sub_category_id,omitempty"`
	SubCategoryName string    `json:"sub_category_name,omitempty"`
	Direction       Direction `json:"direction"`
	Amount          float64   `json:"amount"`
	Month           int       `json:"month,omitempty"`
	Year            int       `json:"year,omitempty"`
}

// AbsAmount returns the absolute transaction amount. Amount bounds in a
// QuerySpec compare against this value.
func (t TransactionRecord) AbsAmount() float64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}
