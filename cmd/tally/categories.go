package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tally-money/tally/internal/cli"
	"github.com/tally-money/tally/internal/match"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage spending categories",
	}

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesAuditCmd())

	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cats, err := store.ListCategories(ctx)
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Println(cli.FormatWarning("no categories yet"))
				return nil
			}

			for _, cat := range cats {
				fmt.Printf("%-5d %s\n", cat.ID, cat.Name)
			}
			return nil
		},
	}
}

func categoriesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := store.CreateCategory(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("category %d: %s", id, args[0])))
			return nil
		},
	}
}

func categoriesAuditCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Flag category names that look like duplicates",
		Long: `Compare every pair of category names by edit-distance similarity and
report pairs above the threshold, e.g. "Groceries" vs "Grocery".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cats, err := store.ListCategories(ctx)
			if err != nil {
				return err
			}

			found := 0
			for i := 0; i < len(cats); i++ {
				for j := i + 1; j < len(cats); j++ {
					a := match.Normalize(cats[i].Name)
					b := match.Normalize(cats[j].Name)
					score := match.EditSimilarity(a, b)
					if score >= threshold {
						found++
						fmt.Println(cli.FormatWarning(fmt.Sprintf(
							"%q and %q look similar (%.0f%%)", cats[i].Name, cats[j].Name, score*100)))
					}
				}
			}

			if found == 0 {
				fmt.Println(cli.FormatSuccess("no suspicious category pairs"))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.6, "edit similarity above which a pair is flagged")
	return cmd
}
