package model

// ClassificationResult is the outcome of evaluating the rule set against a
// single counterparty name. Both fields are nil when no rule matched; the
// caller decides the fallback category.
type ClassificationResult struct {
	CategoryID    *int64 `json:"category_id,omitempty"`
	MatchedRuleID *int64 `json:"matched_rule_id,omitempty"`
}

// Matched reports whether any rule matched the name.
func (r ClassificationResult) Matched() bool {
	return r.MatchedRuleID != nil
}
