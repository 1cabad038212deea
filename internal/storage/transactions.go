package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/model"
)

// SaveTransactions inserts a batch of imported statement rows in one
// transaction, filling in each row's generated id.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (date, raw_name, amount, entity_id, category_id)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i := range txns {
			res, execErr := stmt.ExecContext(ctx,
				txns[i].Date, txns[i].RawName, txns[i].Amount, txns[i].EntityID, txns[i].CategoryID)
			if execErr != nil {
				return fmt.Errorf("failed to insert transaction: %w", execErr)
			}
			id, idErr := res.LastInsertId()
			if idErr != nil {
				return fmt.Errorf("failed to read transaction id: %w", idErr)
			}
			txns[i].ID = id
		}
		return nil
	})
}

// ListUnclassified returns transactions with no category yet, oldest first.
func (s *SQLiteStorage) ListUnclassified(ctx context.Context) ([]model.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, date, raw_name, amount, entity_id, category_id
		FROM transactions WHERE category_id IS NULL ORDER BY date, id`)
}

// ListTransactions returns every transaction, oldest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, date, raw_name, amount, entity_id, category_id
		FROM transactions ORDER BY date, id`)
}

// SetTransactionCategory records the category a rule (or operator) chose.
func (s *SQLiteStorage) SetTransactionCategory(ctx context.Context, txnID, categoryID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE id = ?`, categoryID, txnID)
	if err != nil {
		return fmt.Errorf("failed to set transaction category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", txnID, common.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.RawName, &t.Amount, &t.EntityID, &t.CategoryID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
