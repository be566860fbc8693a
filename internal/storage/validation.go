package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrEmptySlice        = errors.New("slice cannot be empty")
	ErrInvalidRecord     = errors.New("invalid transaction record")
	ErrInvalidDirection  = errors.New("direction must be D or C")
	ErrInvalidImportFile = errors.New("invalid import file")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords validates a slice of ledger rows.
func validateRecords(records []model.TransactionRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: records", ErrEmptySlice)
	}
	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			return fmt.Errorf("record at index %d: %w", i, err)
		}
	}
	return nil
}

func validateRecord(rec model.TransactionRecord) error {
	if rec.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction_id", ErrInvalidRecord)
	}
	if rec.UserID == "" {
		return fmt.Errorf("%w: missing user_id", ErrInvalidRecord)
	}
	if rec.AccountID == "" {
		return fmt.Errorf("%w: missing account_id", ErrInvalidRecord)
	}
	if rec.Direction != model.DirectionDebit && rec.Direction != model.DirectionCredit {
		return fmt.Errorf("%w: got %q", ErrInvalidDirection, rec.Direction)
	}
	if rec.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRecord)
	}
	return nil
}
