package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tally-money/tally/internal/cli"
	"github.com/tally-money/tally/internal/engine"
	"github.com/tally-money/tally/internal/grouping"
	"github.com/tally-money/tally/internal/model"
	"github.com/tally-money/tally/internal/tui"
)

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Group counterparty name variants under canonical entities",
		Long: `Cluster ungrouped entities like "AMAZON*1234" and "AMAZON*5678" under a
single parent entity. Suggestions are computed from normalized-name
similarity and applied only after review.`,
	}

	cmd.PersistentFlags().String("kind", string(model.KindCounterparty), "entity kind (counterparty, vendor)")
	cmd.PersistentFlags().Float64("threshold", 0, "similarity threshold override (0 = configured default)")
	cmd.PersistentFlags().Int("min-length", 0, "minimum normalized name length override")

	cmd.AddCommand(groupsSuggestCmd())
	cmd.AddCommand(groupsApplyCmd())
	cmd.AddCommand(groupsListCmd())

	return cmd
}

func groupingConfig(cmd *cobra.Command) grouping.Config {
	cfg := grouping.Config{
		SimilarityThreshold: viper.GetFloat64("grouping.similarity_threshold"),
		MinNameLength:       viper.GetInt("grouping.min_name_length"),
		Debug:               viper.GetBool("grouping.debug"),
	}

	if v, err := cmd.Flags().GetFloat64("threshold"); err == nil && v > 0 {
		cfg.SimilarityThreshold = v
	}
	if v, err := cmd.Flags().GetInt("min-length"); err == nil && v > 0 {
		cfg.MinNameLength = v
	}
	return cfg
}

func entityKind(cmd *cobra.Command) (model.EntityKind, error) {
	raw, _ := cmd.Flags().GetString("kind")
	kind := model.EntityKind(raw)
	if kind != model.KindCounterparty && kind != model.KindVendor {
		return "", fmt.Errorf("unknown entity kind %q", raw)
	}
	return kind, nil
}

func groupsSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Show grouping suggestions without applying them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			kind, err := entityKind(cmd)
			if err != nil {
				return err
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			grouper := engine.NewGrouper(store, groupingConfig(cmd))
			suggestions, err := grouper.Suggest(ctx, kind)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Println(cli.FormatWarning("nothing to group"))
				return nil
			}

			printSuggestions(suggestions)
			return nil
		},
	}
}

func groupsApplyCmd() *cobra.Command {
	var acceptAll bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Review grouping suggestions and apply the accepted ones",
		Long: `Compute grouping suggestions and open an interactive review. Accepted
suggestions are applied in a single transaction; rejecting everything (or
aborting) leaves the database untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			kind, err := entityKind(cmd)
			if err != nil {
				return err
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			grouper := engine.NewGrouper(store, groupingConfig(cmd))
			suggestions, err := grouper.Suggest(ctx, kind)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Println(cli.FormatWarning("nothing to group"))
				return nil
			}

			accepted := suggestions
			if !acceptAll {
				accepted, err = tui.Run(suggestions)
				if err != nil {
					return err
				}
			}
			if len(accepted) == 0 {
				fmt.Println(cli.FormatWarning("no suggestions accepted"))
				return nil
			}

			if err := grouper.Apply(ctx, kind, accepted); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d grouping(s) applied", len(accepted))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&acceptAll, "yes", false, "apply every suggestion without interactive review")
	return cmd
}

func groupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List existing entity groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			kind, err := entityKind(cmd)
			if err != nil {
				return err
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			trees, err := store.ListParentsWithChildren(ctx, kind)
			if err != nil {
				return err
			}
			if len(trees) == 0 {
				fmt.Println(cli.FormatWarning("no groups yet"))
				return nil
			}

			for _, tree := range trees {
				fmt.Println(cli.BoldStyle.Render(tree.Parent.Name))
				for _, child := range tree.Children {
					fmt.Println(cli.SubtleStyle.Render("  " + child.Name))
				}
			}
			return nil
		},
	}
}

func printSuggestions(suggestions []model.GroupingSuggestion) {
	fmt.Println(cli.FormatTitle(fmt.Sprintf("%d grouping suggestion(s)", len(suggestions))))
	for _, sug := range suggestions {
		target := "new parent"
		if sug.TargetsExistingParent() {
			target = fmt.Sprintf("existing parent #%d", *sug.ParentID)
		}
		fmt.Printf("%s (%s)\n", cli.BoldStyle.Render(sug.ParentName), target)
		fmt.Println(cli.SubtleStyle.Render("  " + strings.Join(sug.ChildNames, ", ")))
	}
}
