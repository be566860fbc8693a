package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// ledgerDateLayout is the fixed date format of ledger files (day first).
const ledgerDateLayout = "02/01/2006"

// ImportCSV loads a transaction ledger file into the store and returns the
// number of imported rows. Column order is header-driven; the minimum
// required columns are transaction_id, user_id, account_id, amount,
// direction and date.
func (s *SQLiteStorage) ImportCSV(ctx context.Context, path string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(path, "path"); err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	records, err := parseLedgerCSV(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := s.SaveTransactions(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func parseLedgerCSV(r io.Reader) ([]model.TransactionRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header row", ErrInvalidImportFile)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"transaction_id", "user_id", "account_id", "amount", "direction", "date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidImportFile, required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []model.TransactionRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidImportFile, line, err)
		}

		amount, err := strconv.ParseFloat(field(row, "amount"), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad amount %q", ErrInvalidImportFile, line, field(row, "amount"))
		}

		date, err := time.Parse(ledgerDateLayout, field(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad date %q", ErrInvalidImportFile, line, field(row, "date"))
		}

		rec := model.TransactionRecord{
			TransactionID:   field(row, "transaction_id"),
			UserID:          field(row, "user_id"),
			AccountID:       field(row, "account_id"),
			AccountType:     field(row, "account_type"),
			Amount:          amount,
			Direction:       model.Direction(field(row, "direction")),
			Date:            date,
			DayOfWeek:       field(row, "dayOfWeek"),
			CategoryGroupID: field(row, "categoryGroupId"),
			CategoryName:    field(row, "categoryName"),
			SubCategoryID:   field(row, "subCategoryId"),
			SubCategoryName: field(row, "subCategoryName"),
		}
		if m := field(row, "month"); m != "" {
			if v, err := strconv.Atoi(m); err == nil {
				rec.Month = v
			}
		} else {
			rec.Month = int(date.Month())
		}
		if y := field(row, "year"); y != "" {
			if v, err := strconv.Atoi(y); err == nil {
				rec.Year = v
			}
		} else {
			rec.Year = date.Year()
		}

		records = append(records, rec)
	}

	return records, nil
}
