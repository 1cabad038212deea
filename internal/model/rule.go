// Package model defines the core data structures for the tally application.
package model

import (
	"fmt"
	"time"
)

// RuleType distinguishes operator-authored rules from built-in fallbacks.
type RuleType string

// Rule type constants, listed in evaluation-priority order.
const (
	// RuleTypePattern is an operator-authored classification rule.
	RuleTypePattern RuleType = "pattern"
	// RuleTypeDefaultPattern is a built-in fallback rule, always evaluated
	// after every operator rule regardless of numeric order.
	RuleTypeDefaultPattern RuleType = "default_pattern"
)

// ruleTypePriority fixes the evaluation order across rule types. Custom
// rules always run before defaults; numeric order only breaks ties within
// a type.
var ruleTypePriority = []RuleType{
	RuleTypePattern,
	RuleTypeDefaultPattern,
}

// TypePriorityIndex returns the evaluation rank of a rule type. Unknown
// types sort after all known ones.
func TypePriorityIndex(t RuleType) int {
	for i, known := range ruleTypePriority {
		if t == known {
			return i
		}
	}
	return len(ruleTypePriority)
}

// Rule represents a glob-based classification rule for counterparty names.
type Rule struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Type       RuleType  `json:"rule_type"`
	Pattern    string    `json:"pattern"`
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Order      int       `json:"rule_order"`
	Enabled    bool      `json:"enabled"`
}

// OrderGap is the spacing between consecutive rule_order values, leaving
// room to insert rules between existing ones without renumbering.
const OrderGap = 10

// Validate ensures the rule has usable data before it is persisted.
func (r *Rule) Validate() error {
	if r.Pattern == "" {
		return fmt.Errorf("rule pattern is required")
	}
	if r.CategoryID <= 0 {
		return fmt.Errorf("rule category is required")
	}
	if TypePriorityIndex(r.Type) >= len(ruleTypePriority) {
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}
