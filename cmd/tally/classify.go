package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tally-money/tally/internal/cli"
	"github.com/tally-money/tally/internal/engine"
	"github.com/tally-money/tally/internal/model"
)

type categoryLookup interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [name]",
		Short: "Classify transactions using the rule set",
		Long: `Run every unclassified transaction through the ordered rule set, or,
given a name argument, show which rule and category the name would hit
without writing anything.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			classifier := engine.NewClassifier(store)

			if len(args) == 1 {
				return classifyOne(cmd, classifier, store, args[0])
			}

			bar := progressbar.Default(-1, "classifying")
			classifier.OnProgress = func(done, total int) {
				bar.ChangeMax(total)
				_ = bar.Set(done)
			}

			summary, err := classifier.ClassifyAll(ctx)
			if err != nil {
				return err
			}
			_ = bar.Finish()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"%d transactions processed: %d classified, %d left for review",
				summary.Total, summary.Classified, summary.Unmatched)))
			return nil
		},
	}
}

func classifyOne(cmd *cobra.Command, classifier *engine.Classifier, store categoryLookup, name string) error {
	result, err := classifier.ClassifyName(cmd.Context(), name)
	if err != nil {
		return err
	}

	if !result.Matched() {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("no rule matches %q", name)))
		return nil
	}

	categoryName := fmt.Sprintf("#%d", *result.CategoryID)
	if cats, listErr := store.ListCategories(cmd.Context()); listErr == nil {
		for _, cat := range cats {
			if cat.ID == *result.CategoryID {
				categoryName = cat.Name
				break
			}
		}
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%q -> %s (rule %d)", name, categoryName, *result.MatchedRuleID)))
	return nil
}
