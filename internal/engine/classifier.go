// Package engine orchestrates the pure classification and grouping cores
// against storage: it loads snapshots, invokes the engines, and persists
// accepted results.
package engine

import (
	"context"
	"fmt"

	"github.com/tally-money/tally/internal/common"
	"github.com/tally-money/tally/internal/model"
	"github.com/tally-money/tally/internal/rules"
)

// ClassifierStore is the storage surface the classifier needs.
type ClassifierStore interface {
	ListRules(ctx context.Context) ([]model.Rule, error)
	ListUnclassified(ctx context.Context) ([]model.Transaction, error)
	SetTransactionCategory(ctx context.Context, txnID, categoryID int64) error
}

// ClassifySummary reports the outcome of a classification run.
type ClassifySummary struct {
	Total      int
	Classified int
	Unmatched  int
}

// Classifier applies the rule engine to unclassified transactions.
type Classifier struct {
	store ClassifierStore

	// OnProgress, when set, is called after each transaction.
	OnProgress func(done, total int)
}

// NewClassifier creates a classifier over the given store.
func NewClassifier(store ClassifierStore) *Classifier {
	return &Classifier{store: store}
}

// ClassifyName evaluates the current rule set against a single name
// without touching any transaction. Used for dry runs and rule debugging.
func (c *Classifier) ClassifyName(ctx context.Context, name string) (model.ClassificationResult, error) {
	ruleSet, err := c.store.ListRules(ctx)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules.Apply(name, ruleSet), nil
}

// ClassifyAll classifies every unclassified transaction by its raw
// counterparty name. Transactions no rule matches are left unclassified;
// the operator decides their category later.
func (c *Classifier) ClassifyAll(ctx context.Context) (ClassifySummary, error) {
	ruleSet, err := c.store.ListRules(ctx)
	if err != nil {
		return ClassifySummary{}, fmt.Errorf("failed to load rules: %w", err)
	}

	txns, err := c.store.ListUnclassified(ctx)
	if err != nil {
		return ClassifySummary{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	eng := rules.NewEngine(ruleSet)
	summary := ClassifySummary{Total: len(txns)}

	for i, txn := range txns {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := eng.Apply(txn.RawName)
		if result.Matched() {
			if err := c.store.SetTransactionCategory(ctx, txn.ID, *result.CategoryID); err != nil {
				return summary, fmt.Errorf("failed to classify transaction %d: %w", txn.ID, err)
			}
			summary.Classified++
			common.LogDebug("classified transaction", common.Fields{
				"transaction": txn.ID,
				"name":        txn.RawName,
				"rule":        *result.MatchedRuleID,
				"category":    *result.CategoryID,
			})
		} else {
			summary.Unmatched++
		}

		if c.OnProgress != nil {
			c.OnProgress(i+1, len(txns))
		}
	}

	common.LogInfo("classification run complete", common.Fields{
		"total":      summary.Total,
		"classified": summary.Classified,
		"unmatched":  summary.Unmatched,
	})
	return summary, nil
}
