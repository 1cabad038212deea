package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestCategories(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	id, err := s.CreateCategory(ctx, "Groceries")
	require.NoError(t, err)
	assert.Positive(t, id)

	t.Run("create is idempotent by name", func(t *testing.T) {
		again, err := s.CreateCategory(ctx, "Groceries")
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})

	t.Run("get by name", func(t *testing.T) {
		cat, err := s.GetCategoryByName(ctx, "Groceries")
		require.NoError(t, err)
		assert.Equal(t, id, cat.ID)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := s.GetCategoryByName(ctx, "Nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("list is name ordered", func(t *testing.T) {
		_, err := s.CreateCategory(ctx, "Dining")
		require.NoError(t, err)

		cats, err := s.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, cats, 2)
		assert.Equal(t, "Dining", cats[0].Name)
		assert.Equal(t, "Groceries", cats[1].Name)
	})
}

func TestRules(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	catID, err := s.CreateCategory(ctx, "Coffee")
	require.NoError(t, err)

	r1 := &model.Rule{Type: model.RuleTypePattern, Pattern: "STARBUCKS*", CategoryID: catID, Enabled: true}
	require.NoError(t, s.CreateRule(ctx, r1))
	assert.Equal(t, model.OrderGap, r1.Order)

	r2 := &model.Rule{Type: model.RuleTypePattern, Pattern: "BLUE BOTTLE*", CategoryID: catID, Enabled: true}
	require.NoError(t, s.CreateRule(ctx, r2))
	assert.Equal(t, 2*model.OrderGap, r2.Order, "orders are spaced by the gap")

	rd := &model.Rule{Type: model.RuleTypeDefaultPattern, Pattern: "*", CategoryID: catID, Enabled: true}
	require.NoError(t, s.CreateRule(ctx, rd))
	assert.Equal(t, model.OrderGap, rd.Order, "order numbering restarts per type")

	t.Run("validation rejects empty pattern", func(t *testing.T) {
		err := s.CreateRule(ctx, &model.Rule{Type: model.RuleTypePattern, CategoryID: catID})
		assert.Error(t, err)
	})

	t.Run("list returns all", func(t *testing.T) {
		ruleSet, err := s.ListRules(ctx)
		require.NoError(t, err)
		assert.Len(t, ruleSet, 3)
	})

	t.Run("swap rule orders survives the unique constraint", func(t *testing.T) {
		a, b := *r1, *r2
		a.Order, b.Order = b.Order, a.Order
		require.NoError(t, s.SwapRuleOrders(ctx, a, b))

		got1, err := s.GetRule(ctx, r1.ID)
		require.NoError(t, err)
		got2, err := s.GetRule(ctx, r2.ID)
		require.NoError(t, err)
		assert.Equal(t, 2*model.OrderGap, got1.Order)
		assert.Equal(t, model.OrderGap, got2.Order)
	})

	t.Run("enable toggle", func(t *testing.T) {
		require.NoError(t, s.SetRuleEnabled(ctx, r1.ID, false))
		got, err := s.GetRule(ctx, r1.ID)
		require.NoError(t, err)
		assert.False(t, got.Enabled)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteRule(ctx, rd.ID))
		_, err := s.GetRule(ctx, rd.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.ErrorIs(t, s.SetRuleEnabled(ctx, 9999, true), common.ErrNotFound)
		assert.ErrorIs(t, s.DeleteRule(ctx, 9999), common.ErrNotFound)
	})
}

func TestEntities_CreateAndList(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	e := &model.Entity{Name: "AMAZON*1111", Kind: model.KindCounterparty}
	require.NoError(t, s.CreateEntity(ctx, e))
	assert.Positive(t, e.ID)

	dup := &model.Entity{Name: "AMAZON*1111", Kind: model.KindCounterparty}
	require.NoError(t, s.CreateEntity(ctx, dup))
	assert.Equal(t, e.ID, dup.ID, "same name and kind resolves to the same row")

	other := &model.Entity{Name: "AMAZON*1111", Kind: model.KindVendor}
	require.NoError(t, s.CreateEntity(ctx, other))
	assert.NotEqual(t, e.ID, other.ID, "kinds partition the namespace")

	all, err := s.ListEntities(ctx, model.KindCounterparty)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "AMAZON*1111", all[0].Name)
}

func TestEntities_GroupingQueriesAndApply(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	mk := func(name string) *model.Entity {
		e := &model.Entity{Name: name, Kind: model.KindCounterparty}
		require.NoError(t, s.CreateEntity(ctx, e))
		return e
	}
	addTxn := func(e *model.Entity) {
		txns := []model.Transaction{{Date: time.Now().UTC(), RawName: e.Name, Amount: 9.99, EntityID: &e.ID}}
		require.NoError(t, s.SaveTransactions(ctx, txns))
	}

	a1 := mk("AMAZON*1111")
	a2 := mk("AMAZON*2222")
	lyft := mk("Lyft")
	lyftRide := mk("LYFT *RIDE")
	addTxn(a1)
	addTxn(a2)
	addTxn(lyftRide)

	t.Run("ungrouped requires transaction activity", func(t *testing.T) {
		ungrouped, err := s.ListUngrouped(ctx, model.KindCounterparty)
		require.NoError(t, err)
		ids := entityIDs(ungrouped)
		assert.Equal(t, []int64{a1.ID, a2.ID, lyftRide.ID}, ids)
	})

	t.Run("childless parents have no activity", func(t *testing.T) {
		parents, err := s.ListChildlessParents(ctx, model.KindCounterparty)
		require.NoError(t, err)
		assert.Equal(t, []int64{lyft.ID}, entityIDs(parents))
	})

	suggestions := []model.GroupingSuggestion{
		{ParentName: "Amazon", NormalizedForm: "amazon", ChildIDs: []int64{a1.ID, a2.ID}, ChildNames: []string{a1.Name, a2.Name}},
		{ParentID: &lyft.ID, ParentName: "Lyft", NormalizedForm: "lyft", ChildIDs: []int64{lyftRide.ID}, ChildNames: []string{lyftRide.Name}},
	}
	require.NoError(t, s.ApplySuggestions(ctx, model.KindCounterparty, suggestions))

	t.Run("apply builds two-level trees", func(t *testing.T) {
		trees, err := s.ListParentsWithChildren(ctx, model.KindCounterparty)
		require.NoError(t, err)
		require.Len(t, trees, 2)

		assert.Equal(t, "Lyft", trees[0].Parent.Name)
		assert.Equal(t, []int64{lyftRide.ID}, entityIDs(trees[0].Children))

		assert.Equal(t, "Amazon", trees[1].Parent.Name)
		assert.Equal(t, []int64{a1.ID, a2.ID}, entityIDs(trees[1].Children))
	})

	t.Run("grouped entities leave the candidate pool", func(t *testing.T) {
		ungrouped, err := s.ListUngrouped(ctx, model.KindCounterparty)
		require.NoError(t, err)
		assert.Empty(t, ungrouped)
	})

	t.Run("re-grouping a grouped entity is rejected", func(t *testing.T) {
		err := s.ApplySuggestions(ctx, model.KindCounterparty, []model.GroupingSuggestion{
			{ParentID: &lyft.ID, ParentName: "Lyft", ChildIDs: []int64{a1.ID}},
		})
		assert.ErrorIs(t, err, common.ErrAlreadyGrouped)
	})

	t.Run("a child cannot become a parent", func(t *testing.T) {
		newcomer := mk("AMAZON*3333")
		addTxn(newcomer)

		err := s.ApplySuggestions(ctx, model.KindCounterparty, []model.GroupingSuggestion{
			{ParentID: &a1.ID, ParentName: a1.Name, ChildIDs: []int64{newcomer.ID}},
		})
		assert.ErrorIs(t, err, common.ErrParentNotRoot)
	})

	t.Run("a parent cannot be re-parented", func(t *testing.T) {
		amazon, err := s.GetEntityByName(ctx, model.KindCounterparty, "Amazon")
		require.NoError(t, err)

		err = s.ApplySuggestions(ctx, model.KindCounterparty, []model.GroupingSuggestion{
			{ParentID: &lyft.ID, ParentName: "Lyft", ChildIDs: []int64{amazon.ID}},
		})
		assert.ErrorIs(t, err, common.ErrParentNotRoot)
	})

	t.Run("batch failure rolls back entirely", func(t *testing.T) {
		fresh := mk("FRESH ONE")
		addTxn(fresh)

		err := s.ApplySuggestions(ctx, model.KindCounterparty, []model.GroupingSuggestion{
			{ParentID: &lyft.ID, ParentName: "Lyft", ChildIDs: []int64{fresh.ID}},
			{ParentID: &lyft.ID, ParentName: "Lyft", ChildIDs: []int64{a1.ID}}, // already grouped
		})
		require.Error(t, err)

		got, err := s.GetEntity(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID, "first suggestion must have been rolled back")
	})
}

func TestTransactions(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	catID, err := s.CreateCategory(ctx, "Transport")
	require.NoError(t, err)

	e := &model.Entity{Name: "LYFT *RIDE", Kind: model.KindCounterparty}
	require.NoError(t, s.CreateEntity(ctx, e))

	txns := []model.Transaction{
		{Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), RawName: "LYFT *RIDE", Amount: 18.40, EntityID: &e.ID},
		{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), RawName: "LYFT *RIDE", Amount: 12.10, EntityID: &e.ID},
	}
	require.NoError(t, s.SaveTransactions(ctx, txns))
	assert.Positive(t, txns[0].ID)
	assert.Positive(t, txns[1].ID)

	t.Run("unclassified are date ordered", func(t *testing.T) {
		got, err := s.ListUnclassified(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Date.Before(got[1].Date))
	})

	t.Run("classification removes from unclassified", func(t *testing.T) {
		require.NoError(t, s.SetTransactionCategory(ctx, txns[0].ID, catID))

		got, err := s.ListUnclassified(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("missing transaction", func(t *testing.T) {
		assert.ErrorIs(t, s.SetTransactionCategory(ctx, 9999, catID), common.ErrNotFound)
	})
}

func entityIDs(entities []model.Entity) []int64 {
	ids := make([]int64, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}
