package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// SaveTransactions inserts ledger rows in a single transaction. Existing
// rows with the same transaction_id are replaced; the ledger is a static
// snapshot, so re-imports are whole-row overwrites, never partial updates.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, records []model.TransactionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO transactions (
			transaction_id, user_id, account_id, account_type,
			amount, direction, date, month, year, day_of_week,
			category_group_id, category_name, sub_category_id, sub_category_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.TransactionID, rec.UserID, rec.AccountID, nullable(rec.AccountType),
			rec.Amount, string(rec.Direction), rec.Date, rec.Month, rec.Year,
			nullable(rec.DayOfWeek), nullable(rec.CategoryGroupID), nullable(rec.CategoryName),
			nullable(rec.SubCategoryID), nullable(rec.SubCategoryName),
		); err != nil {
			return fmt.Errorf("failed to insert transaction at index %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}

	slog.Debug("saved transactions", "count", len(records))
	return nil
}

// Snapshot returns the full ledger as an immutable in-memory snapshot.
// The query engine applies all filtering itself; reading everything keeps
// the execution path deterministic against one consistent view.
func (s *SQLiteStorage) Snapshot(ctx context.Context) ([]model.TransactionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, user_id, account_id, account_type,
		       amount, direction, date, month, year, day_of_week,
		       category_group_id, category_name, sub_category_id, sub_category_name
		FROM transactions
		ORDER BY date, transaction_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []model.TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return records, nil
}

// TransactionCount returns the number of ledger rows.
func (s *SQLiteStorage) TransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func scanTransaction(rows *sql.Rows) (model.TransactionRecord, error) {
	var rec model.TransactionRecord
	var direction string
	var accountType, dayOfWeek, groupID, groupName, subID, subName sql.NullString
	var month, year sql.NullInt64

	if err := rows.Scan(
		&rec.TransactionID, &rec.UserID, &rec.AccountID, &accountType,
		&rec.Amount, &direction, &rec.Date, &month, &year, &dayOfWeek,
		&groupID, &groupName, &subID, &subName,
	); err != nil {
		return rec, fmt.Errorf("failed to scan transaction: %w", err)
	}

	rec.Direction = model.Direction(direction)
	rec.AccountType = accountType.String
	rec.DayOfWeek = dayOfWeek.String
	rec.CategoryGroupID = groupID.String
	rec.CategoryName = groupName.String
	rec.SubCategoryID = subID.String
	rec.SubCategoryName = subName.String
	rec.Month = int(month.Int64)
	rec.Year = int(year.Int64)

	return rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
