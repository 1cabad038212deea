package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/model"
)

// CreateRule inserts a rule. When Order is zero the rule is appended after
// the last rule of its type, spaced by model.OrderGap so later inserts can
// slot between existing rules.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		order := rule.Order
		if order == 0 {
			var maxOrder sql.NullInt64
			err := tx.QueryRowContext(ctx,
				`SELECT MAX(rule_order) FROM rules WHERE rule_type = ?`, rule.Type).
				Scan(&maxOrder)
			if err != nil {
				return fmt.Errorf("failed to find last rule order: %w", err)
			}
			order = int(maxOrder.Int64) + model.OrderGap
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO rules (rule_type, pattern, category_id, rule_order, enabled)
			VALUES (?, ?, ?, ?, ?)`,
			rule.Type, rule.Pattern, rule.CategoryID, order, rule.Enabled)
		if err != nil {
			return fmt.Errorf("failed to create rule: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read rule id: %w", err)
		}
		rule.ID = id
		rule.Order = order
		return nil
	})
}

// GetRule retrieves a rule by id.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	var r model.Rule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, rule_type, pattern, category_id, rule_order, enabled, created_at, updated_at
		FROM rules WHERE id = ?`, id).
		Scan(&r.ID, &r.Type, &r.Pattern, &r.CategoryID, &r.Order, &r.Enabled, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return &r, nil
}

// ListRules returns every rule, ordered by (rule_type, rule_order). The
// rule engine re-sorts by type priority; this ordering is for display.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_type, pattern, category_id, rule_order, enabled, created_at, updated_at
		FROM rules ORDER BY rule_type, rule_order`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ruleSet []model.Rule
	for rows.Next() {
		var r model.Rule
		if err := rows.Scan(&r.ID, &r.Type, &r.Pattern, &r.CategoryID, &r.Order, &r.Enabled,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		ruleSet = append(ruleSet, r)
	}
	return ruleSet, rows.Err()
}

// SetRuleEnabled toggles a rule without touching its order.
func (s *SQLiteStorage) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// SwapRuleOrders persists an order swap produced by rules.MoveUp/MoveDown.
// The rules table keeps (rule_type, rule_order) unique, so the swap routes
// through a temporary negative order inside one transaction.
func (s *SQLiteStorage) SwapRuleOrders(ctx context.Context, a, b model.Rule) error {
	if a.Type != b.Type {
		return fmt.Errorf("cannot swap orders across rule types: %w", common.ErrInvalidConfig)
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()

		if _, err := tx.ExecContext(ctx,
			`UPDATE rules SET rule_order = -1, updated_at = ? WHERE id = ?`, now, a.ID); err != nil {
			return fmt.Errorf("failed to stage order swap: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE rules SET rule_order = ?, updated_at = ? WHERE id = ?`, b.Order, now, b.ID); err != nil {
			return fmt.Errorf("failed to swap rule order: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE rules SET rule_order = ?, updated_at = ? WHERE id = ?`, a.Order, now, a.ID); err != nil {
			return fmt.Errorf("failed to swap rule order: %w", err)
		}
		return nil
	})
}

// DeleteRule removes a rule permanently.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}
