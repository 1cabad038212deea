package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/model"
)

// CreateCategory inserts a category, returning its id. Creating a category
// that already exists returns the existing row's id.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("category name must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return 0, fmt.Errorf("failed to read category id: %w", idErr)
		}
		return id, nil
	}

	existing, err := s.GetCategoryByName(ctx, name)
	if err != nil {
		return 0, err
	}
	return existing.ID, nil
}

// GetCategoryByName retrieves a category by its exact name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var cat model.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE name = ?`, name).
		Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &cat, nil
}

// ListCategories returns all categories ordered by name.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cats []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}
