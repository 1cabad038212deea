package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tally-money/tally/internal/model"
)

func ent(id int64, name string) model.Entity {
	return model.Entity{ID: id, Name: name, Kind: model.KindCounterparty}
}

func child(id int64, name string, parentID int64) model.Entity {
	return model.Entity{ID: id, Name: name, Kind: model.KindCounterparty, ParentID: &parentID}
}

func TestSuggest_SameMerchantVariants(t *testing.T) {
	entities := []model.Entity{
		ent(1, "AMAZON*1234ABC"),
		ent(2, "AMAZON*5678XYZ"),
	}

	got := Suggest(entities, nil, nil, Config{})

	require.Len(t, got, 1)
	assert.Nil(t, got[0].ParentID)
	assert.Equal(t, "Amazon", got[0].ParentName)
	assert.Equal(t, "amazon", got[0].NormalizedForm)
	assert.Equal(t, []int64{1, 2}, got[0].ChildIDs)
	assert.Equal(t, []string{"AMAZON*1234ABC", "AMAZON*5678XYZ"}, got[0].ChildNames)
}

func TestSuggest_DistinctMerchantsNotMerged(t *testing.T) {
	entities := []model.Entity{
		ent(1, "STARBUCKS #1"),
		ent(2, "WALMART #2"),
		ent(3, "TARGET #3"),
	}

	got := Suggest(entities, nil, nil, Config{})
	assert.Empty(t, got)
}

func TestSuggest_SiblingMatchingPrefersExistingParent(t *testing.T) {
	starbucks := model.ParentWithChildren{
		Parent:   ent(100, "Starbucks"),
		Children: []model.Entity{child(101, "STARBUCKS #1234", 100)},
	}
	entities := []model.Entity{ent(5, "STARBUCKS #5678")}

	got := Suggest(entities, nil, []model.ParentWithChildren{starbucks}, Config{})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, int64(100), *got[0].ParentID, "must target the root, never a child")
	assert.Equal(t, "Starbucks", got[0].ParentName)
	assert.Equal(t, []int64{5}, got[0].ChildIDs)
}

func TestSuggest_NeverTargetsAChildEntity(t *testing.T) {
	tree := model.ParentWithChildren{
		Parent: ent(100, "Uber"),
		Children: []model.Entity{
			child(101, "UBER EATS PORTLAND", 100),
			child(102, "UBER TRIP HELP", 100),
		},
	}
	// Similar to the children, not to the parent name itself.
	entities := []model.Entity{ent(7, "UBER EATS SEATTLE")}

	got := Suggest(entities, nil, []model.ParentWithChildren{tree}, Config{})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, int64(100), *got[0].ParentID)
}

func TestSuggest_RootParentMatching(t *testing.T) {
	existing := []model.Entity{ent(10, "Lyft")}
	entities := []model.Entity{
		ent(1, "LYFT *RIDE THU"),
		ent(2, "LYFT *RIDE FRI"),
	}

	got := Suggest(entities, existing, nil, Config{})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, int64(10), *got[0].ParentID)
	assert.Equal(t, "Lyft", got[0].ParentName)
	assert.Equal(t, []int64{1, 2}, got[0].ChildIDs)
}

func TestSuggest_ExistingParentKeptWithSingleChild(t *testing.T) {
	existing := []model.Entity{ent(10, "Netflix")}
	entities := []model.Entity{ent(1, "NETFLIX.COM #882")}

	got := Suggest(entities, existing, nil, Config{})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, []int64{1}, got[0].ChildIDs)
}

func TestSuggest_LCPPairwiseGrouping(t *testing.T) {
	entities := []model.Entity{
		ent(1, "BLUE BOTTLE COFFEE OAK"),
		ent(2, "BLUE BOTTLE COFFEE SF"),
		ent(3, "WHOLEFDS MARKET"),
	}

	got := Suggest(entities, nil, nil, Config{})

	require.Len(t, got, 1)
	assert.Nil(t, got[0].ParentID)
	assert.Equal(t, "Blue Bottle Coffee", got[0].ParentName)
	assert.Equal(t, "blue bottle coffee", got[0].NormalizedForm)
	assert.Equal(t, []int64{1, 2}, got[0].ChildIDs)
}

func TestSuggest_FirstWordMerge(t *testing.T) {
	entities := []model.Entity{
		ent(1, "AMAZON RETA*11"),
		ent(2, "AMAZON RETA*22"),
		ent(3, "AMAZON MKTPL*33"),
		ent(4, "AMAZON MKTPL*44"),
	}

	got := Suggest(entities, nil, nil, Config{})

	require.Len(t, got, 1)
	assert.Nil(t, got[0].ParentID)
	assert.Equal(t, "Amazon", got[0].ParentName)
	assert.Equal(t, "amazon", got[0].NormalizedForm)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, got[0].ChildIDs)
}

func TestSuggest_ExistingParentExcludedFromMerge(t *testing.T) {
	// The "Uber Eats" suggestion extends an existing parent and shares its
	// first word with the brand-new "Uber Trip" group; merging would fold
	// both into a synthetic "Uber". Existing-parent suggestions stay out
	// of the first-word merge.
	existing := []model.Entity{ent(10, "Uber Eats")}
	entities := []model.Entity{
		ent(1, "UBER EATS PDX 99"),
		ent(2, "UBER TRIP A1"),
		ent(3, "UBER TRIP B2"),
	}

	got := Suggest(entities, existing, nil, Config{})

	require.Len(t, got, 2)

	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, int64(10), *got[0].ParentID)
	assert.Equal(t, "Uber Eats", got[0].ParentName)
	assert.Equal(t, []int64{1}, got[0].ChildIDs)

	assert.Nil(t, got[1].ParentID)
	assert.Equal(t, "Uber Trip", got[1].ParentName)
	assert.Equal(t, []int64{2, 3}, got[1].ChildIDs)
}

func TestSuggest_AlreadyGroupedEntitiesIgnored(t *testing.T) {
	entities := []model.Entity{
		child(1, "AMAZON*1111", 100),
		ent(2, "AMAZON*2222"),
	}

	got := Suggest(entities, nil, nil, Config{})
	assert.Empty(t, got, "a lone ungrouped variant cannot form a new group")
}

func TestSuggest_ShortNamesExcluded(t *testing.T) {
	entities := []model.Entity{
		ent(1, "AB"),
		ent(2, "AB"),
		ent(3, "X 123"),
	}

	got := Suggest(entities, nil, nil, Config{})
	assert.Empty(t, got)
}

func TestSuggest_SelfCycleGuard(t *testing.T) {
	// The same entity shows up both as an ungrouped candidate and as an
	// existing childless root; it must not become its own child.
	uber := ent(10, "Uber")
	entities := []model.Entity{uber, ent(2, "UBER TRIP 8827")}

	got := Suggest(entities, []model.Entity{uber}, nil, Config{})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, int64(10), *got[0].ParentID)
	assert.Equal(t, []int64{2}, got[0].ChildIDs)
}

func TestSuggest_EntityAssignedAtMostOnce(t *testing.T) {
	existing := []model.Entity{ent(10, "Starbucks")}
	entities := []model.Entity{
		ent(1, "STARBUCKS #1"),
		ent(2, "STARBUCKS #2"),
		ent(3, "STARBUCKS #3"),
	}

	got := Suggest(entities, existing, nil, Config{})

	seen := make(map[int64]int)
	for _, s := range got {
		for _, id := range s.ChildIDs {
			seen[id]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "entity %d appears in %d suggestions", id, n)
	}
}

func TestSuggest_SharedFirstWordAloneDoesNotGroup(t *testing.T) {
	// Below the similarity threshold, a shared first word must not be
	// enough: first-word merging only combines groups that already formed.
	entities := []model.Entity{
		ent(1, "UNITED AIRLINES"),
		ent(2, "UNITED HEALTHCARE"),
	}

	got := Suggest(entities, nil, nil, Config{})
	assert.Empty(t, got)
}

func TestSuggest_AmbiguousPrefixNotAParent(t *testing.T) {
	// "abz" and "abq" clear the threshold (2/3) but share only "ab", which
	// is below the minimum name length; no parent is proposed.
	entities := []model.Entity{
		ent(1, "ABZ"),
		ent(2, "ABQ"),
	}

	got := Suggest(entities, nil, nil, Config{})
	assert.Empty(t, got)
}

func TestSuggest_ShortFirstWordDoesNotMerge(t *testing.T) {
	entities := []model.Entity{
		ent(1, "AB CDX*1"),
		ent(2, "AB CDX*2"),
		ent(3, "AB QRS*1"),
		ent(4, "AB QRS*2"),
	}

	got := Suggest(entities, nil, nil, Config{})

	require.Len(t, got, 2, "groups sharing a too-short first word stay separate")
	assert.Equal(t, "Ab Cdx", got[0].ParentName)
	assert.Equal(t, []int64{1, 2}, got[0].ChildIDs)
	assert.Equal(t, "Ab Qrs", got[1].ParentName)
	assert.Equal(t, []int64{3, 4}, got[1].ChildIDs)
}

func TestSuggest_ThresholdControlsAggressiveness(t *testing.T) {
	// LCP "uber ea" = 7 of min length 9 = 0.78: grouped at 0.6, not at 0.8.
	entities := []model.Entity{
		ent(1, "UBER EATS"),
		ent(2, "UBER EAST"),
	}

	loose := Suggest(entities, nil, nil, Config{SimilarityThreshold: 0.6})
	require.Len(t, loose, 1)
	assert.Equal(t, []int64{1, 2}, loose[0].ChildIDs)

	strict := Suggest(entities, nil, nil, Config{SimilarityThreshold: 0.8})
	assert.Empty(t, strict)
}

func TestSuggest_Deterministic(t *testing.T) {
	entities := []model.Entity{
		ent(1, "AMAZON RETA*11"),
		ent(2, "AMAZON MKTPL*33"),
		ent(3, "STARBUCKS #100"),
		ent(4, "STARBUCKS #200"),
		ent(5, "UBER TRIP A"),
		ent(6, "UBER TRIP B"),
	}
	existing := []model.Entity{ent(10, "Uber")}

	first := Suggest(entities, existing, nil, Config{})
	second := Suggest(entities, existing, nil, Config{})
	assert.Equal(t, first, second)
}
