// Package rules evaluates ordered glob classification rules against
// counterparty names, first match wins.
package rules

import (
	"fmt"
	"sort"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/glob"
	"github.com/tally-money/tally/internal/model"
)

// Engine holds a sorted rule set with pre-compiled glob matchers.
type Engine struct {
	compiled map[int64]*glob.Matcher
	rules    []model.Rule
}

// NewEngine creates an engine over a snapshot of the given rules. The rules
// are sorted by (type priority, rule order) with a stable sort; evaluation
// order never depends on input order beyond that.
func NewEngine(ruleSet []model.Rule) *Engine {
	sorted := make([]model.Rule, len(ruleSet))
	copy(sorted, ruleSet)
	SortRules(sorted)

	e := &Engine{
		rules:    sorted,
		compiled: make(map[int64]*glob.Matcher, len(sorted)),
	}

	// Pre-compile patterns. Invalid patterns compile to matchers that
	// never match, so a typo in one rule cannot break evaluation.
	for _, r := range sorted {
		if r.Enabled {
			e.compiled[r.ID] = glob.Compile(r.Pattern)
		}
	}

	return e
}

// Apply evaluates the rule set against a name and returns the category and
// rule of the first match. Disabled rules are skipped. When nothing matches
// both result fields are nil; the caller picks the fallback category.
func (e *Engine) Apply(name string) model.ClassificationResult {
	for _, r := range e.rules {
		if !r.Enabled {
			continue
		}
		m, ok := e.compiled[r.ID]
		if !ok || !m.Match(name) {
			continue
		}

		categoryID := r.CategoryID
		ruleID := r.ID
		return model.ClassificationResult{
			CategoryID:    &categoryID,
			MatchedRuleID: &ruleID,
		}
	}

	return model.ClassificationResult{}
}

// Apply is a convenience for one-shot evaluation without reusing an engine.
func Apply(name string, ruleSet []model.Rule) model.ClassificationResult {
	return NewEngine(ruleSet).Apply(name)
}

// SortRules sorts rules in evaluation order: type priority first, then the
// operator-assigned order within each type. The sort is stable.
func SortRules(ruleSet []model.Rule) {
	sort.SliceStable(ruleSet, func(i, j int) bool {
		pi := model.TypePriorityIndex(ruleSet[i].Type)
		pj := model.TypePriorityIndex(ruleSet[j].Type)
		if pi != pj {
			return pi < pj
		}
		return ruleSet[i].Order < ruleSet[j].Order
	})
}

// MoveUp swaps the rule's order value with the preceding rule of the same
// type. It returns the two rules that changed, for the caller to persist.
// A rule already first within its type is a no-op: reordering can never
// cross a type boundary, so type priority cannot be subverted.
func MoveUp(ruleSet []model.Rule, id int64) ([]model.Rule, error) {
	return swapWithNeighbor(ruleSet, id, -1)
}

// MoveDown swaps the rule's order value with the following rule of the same
// type. Semantics mirror MoveUp.
func MoveDown(ruleSet []model.Rule, id int64) ([]model.Rule, error) {
	return swapWithNeighbor(ruleSet, id, +1)
}

func swapWithNeighbor(ruleSet []model.Rule, id int64, dir int) ([]model.Rule, error) {
	sorted := make([]model.Rule, len(ruleSet))
	copy(sorted, ruleSet)
	SortRules(sorted)

	idx := -1
	for i, r := range sorted {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}

	nb := idx + dir
	if nb < 0 || nb >= len(sorted) || sorted[nb].Type != sorted[idx].Type {
		// Already at the edge of its type block.
		return nil, nil
	}

	sorted[idx].Order, sorted[nb].Order = sorted[nb].Order, sorted[idx].Order
	return []model.Rule{sorted[idx], sorted[nb]}, nil
}
