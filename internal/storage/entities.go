package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/model"
)

// CreateEntity inserts an entity, returning the existing row's id when the
// (name, kind) pair is already present.
func (s *SQLiteStorage) CreateEntity(ctx context.Context, entity *model.Entity) error {
	if entity.Name == "" {
		return fmt.Errorf("entity name must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (name, kind, parent_id) VALUES (?, ?, ?)
		ON CONFLICT(name, kind) DO NOTHING`,
		entity.Name, entity.Kind, entity.ParentID)
	if err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return fmt.Errorf("failed to read entity id: %w", idErr)
		}
		entity.ID = id
		return nil
	}

	existing, err := s.GetEntityByName(ctx, entity.Kind, entity.Name)
	if err != nil {
		return err
	}
	*entity = *existing
	return nil
}

// GetEntity retrieves an entity by id.
func (s *SQLiteStorage) GetEntity(ctx context.Context, id int64) (*model.Entity, error) {
	return s.getEntity(ctx, s.db, id)
}

func (s *SQLiteStorage) getEntity(ctx context.Context, q queryable, id int64) (*model.Entity, error) {
	var e model.Entity
	err := q.QueryRowContext(ctx, `
		SELECT id, name, kind, parent_id, created_at FROM entities WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Kind, &e.ParentID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return &e, nil
}

// GetEntityByName retrieves an entity by its exact name within a kind.
func (s *SQLiteStorage) GetEntityByName(ctx context.Context, kind model.EntityKind, name string) (*model.Entity, error) {
	var e model.Entity
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, parent_id, created_at FROM entities WHERE kind = ? AND name = ?`,
		kind, name).
		Scan(&e.ID, &e.Name, &e.Kind, &e.ParentID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return &e, nil
}

// ListEntities returns every entity of a kind in insertion order.
func (s *SQLiteStorage) ListEntities(ctx context.Context, kind model.EntityKind) ([]model.Entity, error) {
	return s.queryEntities(ctx, `
		SELECT id, name, kind, parent_id, created_at FROM entities
		WHERE kind = ? ORDER BY id`, kind)
}

// ListUngrouped returns root entities of a kind that have no children and
// are referenced by at least one transaction: the grouping candidates.
func (s *SQLiteStorage) ListUngrouped(ctx context.Context, kind model.EntityKind) ([]model.Entity, error) {
	return s.queryEntities(ctx, `
		SELECT e.id, e.name, e.kind, e.parent_id, e.created_at FROM entities e
		WHERE e.kind = ? AND e.parent_id IS NULL
		  AND NOT EXISTS (SELECT 1 FROM entities c WHERE c.parent_id = e.id)
		  AND EXISTS (SELECT 1 FROM transactions t WHERE t.entity_id = e.id)
		ORDER BY e.id`, kind)
}

// ListChildlessParents returns root entities of a kind with no children and
// no transaction activity. These are canonical parents created manually or
// by a previous grouping apply whose children were later detached; they are
// candidates to receive children, never to become children.
func (s *SQLiteStorage) ListChildlessParents(ctx context.Context, kind model.EntityKind) ([]model.Entity, error) {
	return s.queryEntities(ctx, `
		SELECT e.id, e.name, e.kind, e.parent_id, e.created_at FROM entities e
		WHERE e.kind = ? AND e.parent_id IS NULL
		  AND NOT EXISTS (SELECT 1 FROM entities c WHERE c.parent_id = e.id)
		  AND NOT EXISTS (SELECT 1 FROM transactions t WHERE t.entity_id = e.id)
		ORDER BY e.id`, kind)
}

// ListParentsWithChildren materializes every two-level tree of a kind. The
// hierarchy never exceeds two levels, so a flat parent->children index is
// sufficient; no recursive queries.
func (s *SQLiteStorage) ListParentsWithChildren(ctx context.Context, kind model.EntityKind) ([]model.ParentWithChildren, error) {
	parents, err := s.queryEntities(ctx, `
		SELECT e.id, e.name, e.kind, e.parent_id, e.created_at FROM entities e
		WHERE e.kind = ? AND e.parent_id IS NULL
		  AND EXISTS (SELECT 1 FROM entities c WHERE c.parent_id = e.id)
		ORDER BY e.id`, kind)
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		return nil, nil
	}

	children, err := s.queryEntities(ctx, `
		SELECT id, name, kind, parent_id, created_at FROM entities
		WHERE kind = ? AND parent_id IS NOT NULL ORDER BY id`, kind)
	if err != nil {
		return nil, err
	}

	byParent := make(map[int64][]model.Entity)
	for _, c := range children {
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	trees := make([]model.ParentWithChildren, 0, len(parents))
	for _, p := range parents {
		trees = append(trees, model.ParentWithChildren{Parent: p, Children: byParent[p.ID]})
	}
	return trees, nil
}

// ApplySuggestions re-parents the children of each accepted suggestion,
// creating brand-new parent entities where needed. The whole batch runs in
// one transaction: suggestions may share existing parents, and a partial
// apply would leave the two-level invariant violated.
func (s *SQLiteStorage) ApplySuggestions(ctx context.Context, kind model.EntityKind, suggestions []model.GroupingSuggestion) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, sug := range suggestions {
			parentID, err := s.resolveParentTx(ctx, tx, kind, sug)
			if err != nil {
				return err
			}
			for _, childID := range sug.ChildIDs {
				if err := s.setParentTx(ctx, tx, childID, parentID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *SQLiteStorage) resolveParentTx(ctx context.Context, tx *sql.Tx, kind model.EntityKind, sug model.GroupingSuggestion) (int64, error) {
	if sug.ParentID != nil {
		parent, err := s.getEntity(ctx, tx, *sug.ParentID)
		if err != nil {
			return 0, err
		}
		if !parent.IsRoot() {
			return 0, fmt.Errorf("entity %d %q: %w", parent.ID, parent.Name, common.ErrParentNotRoot)
		}
		return parent.ID, nil
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO entities (name, kind) VALUES (?, ?)
		ON CONFLICT(name, kind) DO NOTHING`, sug.ParentName, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to create parent entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return res.LastInsertId()
	}

	// Name collision with an existing entity; reuse it if it is a root.
	var id int64
	var parentID *int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, parent_id FROM entities WHERE kind = ? AND name = ?`, kind, sug.ParentName).
		Scan(&id, &parentID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up parent entity: %w", err)
	}
	if parentID != nil {
		return 0, fmt.Errorf("entity %d %q: %w", id, sug.ParentName, common.ErrParentNotRoot)
	}
	return id, nil
}

// setParentTx assigns a parent to a child, enforcing the two-level shape:
// the child must currently be a childless root, and must not be the parent.
func (s *SQLiteStorage) setParentTx(ctx context.Context, tx *sql.Tx, childID, parentID int64) error {
	if childID == parentID {
		return fmt.Errorf("entity %d cannot be its own parent: %w", childID, common.ErrParentNotRoot)
	}

	child, err := s.getEntity(ctx, tx, childID)
	if err != nil {
		return err
	}
	if !child.IsRoot() {
		return fmt.Errorf("entity %d %q: %w", child.ID, child.Name, common.ErrAlreadyGrouped)
	}

	var childCount int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE parent_id = ?`, childID).Scan(&childCount); err != nil {
		return fmt.Errorf("failed to count children: %w", err)
	}
	if childCount > 0 {
		return fmt.Errorf("entity %d %q has children and cannot be re-parented: %w",
			child.ID, child.Name, common.ErrParentNotRoot)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entities SET parent_id = ? WHERE id = ?`, parentID, childID); err != nil {
		return fmt.Errorf("failed to set parent: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) queryEntities(ctx context.Context, query string, args ...any) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entities []model.Entity
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind, &e.ParentID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
