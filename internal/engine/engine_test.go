package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-money/tally/internal/grouping"
	"github.com/tally-money/tally/internal/model"
)

// fakeStore is an in-memory stand-in for SQLite storage.
type fakeStore struct {
	categorized map[int64]int64
	rules       []model.Rule
	txns        []model.Transaction
	ungrouped   []model.Entity
	parents     []model.Entity
	trees       []model.ParentWithChildren
	applied     [][]model.GroupingSuggestion
}

func newFakeStore() *fakeStore {
	return &fakeStore{categorized: make(map[int64]int64)}
}

func (f *fakeStore) ListRules(_ context.Context) ([]model.Rule, error) {
	return f.rules, nil
}

func (f *fakeStore) ListUnclassified(_ context.Context) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range f.txns {
		if _, done := f.categorized[t.ID]; !done {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) SetTransactionCategory(_ context.Context, txnID, categoryID int64) error {
	f.categorized[txnID] = categoryID
	return nil
}

func (f *fakeStore) ListUngrouped(_ context.Context, _ model.EntityKind) ([]model.Entity, error) {
	return f.ungrouped, nil
}

func (f *fakeStore) ListChildlessParents(_ context.Context, _ model.EntityKind) ([]model.Entity, error) {
	return f.parents, nil
}

func (f *fakeStore) ListParentsWithChildren(_ context.Context, _ model.EntityKind) ([]model.ParentWithChildren, error) {
	return f.trees, nil
}

func (f *fakeStore) ApplySuggestions(_ context.Context, _ model.EntityKind, suggestions []model.GroupingSuggestion) error {
	f.applied = append(f.applied, suggestions)
	return nil
}

func TestClassifier_ClassifyAll(t *testing.T) {
	store := newFakeStore()
	store.rules = []model.Rule{
		{ID: 1, Type: model.RuleTypePattern, Pattern: "STARBUCKS*", CategoryID: 7, Order: 10, Enabled: true},
		{ID: 2, Type: model.RuleTypeDefaultPattern, Pattern: "*COFFEE*", CategoryID: 8, Order: 10, Enabled: true},
	}
	store.txns = []model.Transaction{
		{ID: 100, RawName: "STARBUCKS #1234"},
		{ID: 101, RawName: "BLUE BOTTLE COFFEE"},
		{ID: 102, RawName: "SOMETHING ELSE"},
	}

	c := NewClassifier(store)

	var calls int
	c.OnProgress = func(done, total int) {
		calls++
		assert.Equal(t, 3, total)
	}

	summary, err := c.ClassifyAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ClassifySummary{Total: 3, Classified: 2, Unmatched: 1}, summary)
	assert.Equal(t, int64(7), store.categorized[100])
	assert.Equal(t, int64(8), store.categorized[101])
	assert.NotContains(t, store.categorized, int64(102))
	assert.Equal(t, 3, calls)
}

func TestClassifier_ClassifyName(t *testing.T) {
	store := newFakeStore()
	store.rules = []model.Rule{
		{ID: 1, Type: model.RuleTypePattern, Pattern: "{UBER,LYFT}*", CategoryID: 3, Order: 10, Enabled: true},
	}

	c := NewClassifier(store)

	got, err := c.ClassifyName(context.Background(), "LYFT RIDE")
	require.NoError(t, err)
	require.True(t, got.Matched())
	assert.Equal(t, int64(3), *got.CategoryID)
	assert.Equal(t, int64(1), *got.MatchedRuleID)

	miss, err := c.ClassifyName(context.Background(), "WALMART")
	require.NoError(t, err)
	assert.False(t, miss.Matched())
}

func TestClassifier_RespectsContextCancellation(t *testing.T) {
	store := newFakeStore()
	store.txns = []model.Transaction{{ID: 1, RawName: "X"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClassifier(store).ClassifyAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGrouper_SuggestAndApply(t *testing.T) {
	store := newFakeStore()
	store.ungrouped = []model.Entity{
		{ID: 1, Name: "AMAZON*1111", Kind: model.KindCounterparty},
		{ID: 2, Name: "AMAZON*2222", Kind: model.KindCounterparty},
	}

	g := NewGrouper(store, grouping.Config{})

	suggestions, err := g.Suggest(context.Background(), model.KindCounterparty)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Amazon", suggestions[0].ParentName)

	require.NoError(t, g.Apply(context.Background(), model.KindCounterparty, suggestions))
	require.Len(t, store.applied, 1)
	assert.Equal(t, suggestions, store.applied[0])
}

func TestGrouper_ApplyNothing(t *testing.T) {
	store := newFakeStore()
	g := NewGrouper(store, grouping.Config{})

	require.NoError(t, g.Apply(context.Background(), model.KindCounterparty, nil))
	assert.Empty(t, store.applied)
}
