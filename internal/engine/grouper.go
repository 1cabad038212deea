package engine

import (
	"context"
	"fmt"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/grouping"
	"github.com/tally-money/tally/internal/model"
)

// GrouperStore is the storage surface the grouper needs.
type GrouperStore interface {
	ListUngrouped(ctx context.Context, kind model.EntityKind) ([]model.Entity, error)
	ListChildlessParents(ctx context.Context, kind model.EntityKind) ([]model.Entity, error)
	ListParentsWithChildren(ctx context.Context, kind model.EntityKind) ([]model.ParentWithChildren, error)
	ApplySuggestions(ctx context.Context, kind model.EntityKind, suggestions []model.GroupingSuggestion) error
}

// Grouper produces grouping suggestions from the stored entity snapshot and
// applies the ones the operator accepts.
type Grouper struct {
	store GrouperStore
	eng   *grouping.Engine
}

// NewGrouper creates a grouper with the given configuration.
func NewGrouper(store GrouperStore, cfg grouping.Config) *Grouper {
	return &Grouper{store: store, eng: grouping.NewEngine(cfg)}
}

// Suggest loads the entity snapshot for a kind and runs the grouping
// engine over it. The result is ephemeral: nothing is persisted until the
// operator accepts suggestions and Apply is called.
func (g *Grouper) Suggest(ctx context.Context, kind model.EntityKind) ([]model.GroupingSuggestion, error) {
	ungrouped, err := g.store.ListUngrouped(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load ungrouped entities: %w", err)
	}

	parents, err := g.store.ListChildlessParents(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load childless parents: %w", err)
	}

	trees, err := g.store.ListParentsWithChildren(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity trees: %w", err)
	}

	suggestions := g.eng.Suggest(ungrouped, parents, trees)
	common.LogInfo("grouping suggestions computed", common.Fields{
		"kind":        kind,
		"candidates":  len(ungrouped),
		"suggestions": len(suggestions),
	})
	return suggestions, nil
}

// Apply persists the accepted suggestions. Storage runs the whole batch in
// a single transaction, so overlapping parent references either all land
// or none do.
func (g *Grouper) Apply(ctx context.Context, kind model.EntityKind, accepted []model.GroupingSuggestion) error {
	if len(accepted) == 0 {
		return nil
	}

	if err := g.store.ApplySuggestions(ctx, kind, accepted); err != nil {
		return fmt.Errorf("failed to apply groupings: %w", err)
	}

	common.LogInfo("groupings applied", common.Fields{
		"kind":  kind,
		"count": len(accepted),
	})
	return nil
}
