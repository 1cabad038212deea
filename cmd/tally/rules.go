package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tally-money/tally/internal/cli"
	"github.com/tally-money/tally/internal/glob"
	"github.com/tally-money/tally/internal/model"
	"github.com/tally-money/tally/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long:  `View, add, reorder, and toggle the glob rules that classify counterparty names.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesEnableCmd(true))
	cmd.AddCommand(rulesEnableCmd(false))
	cmd.AddCommand(rulesMoveCmd(true))
	cmd.AddCommand(rulesMoveCmd(false))
	cmd.AddCommand(rulesDeleteCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleSet, err := store.ListRules(ctx)
			if err != nil {
				return err
			}
			if len(ruleSet) == 0 {
				fmt.Println(cli.FormatWarning("no rules defined"))
				return nil
			}

			categories := make(map[int64]string)
			if cats, listErr := store.ListCategories(ctx); listErr == nil {
				for _, cat := range cats {
					categories[cat.ID] = cat.Name
				}
			}

			rules.SortRules(ruleSet)

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-5s %-16s %-30s %-20s %-7s %s",
				"ID", "TYPE", "PATTERN", "CATEGORY", "ORDER", "ENABLED")))
			for _, r := range ruleSet {
				enabled := cli.SuccessIcon
				if !r.Enabled {
					enabled = cli.ErrorIcon
				}
				fmt.Printf("%-5d %-16s %-30s %-20s %-7d %s\n",
					r.ID, r.Type, r.Pattern, categories[r.CategoryID], r.Order, enabled)
			}
			return nil
		},
	}
}

func rulesAddCmd() *cobra.Command {
	var (
		ruleType string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add <pattern> <category>",
		Short: "Add a classification rule",
		Long: `Add a glob rule mapping counterparty names to a category. The category
is created if it does not exist. New rules are appended after the last
rule of their type.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !glob.Compile(args[0]).Valid() {
				return fmt.Errorf("pattern %q does not compile; it would never match", args[0])
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categoryID, err := store.CreateCategory(ctx, args[1])
			if err != nil {
				return err
			}

			rule := &model.Rule{
				Type:       model.RuleType(ruleType),
				Pattern:    args[0],
				CategoryID: categoryID,
				Enabled:    !disabled,
			}
			if err := store.CreateRule(ctx, rule); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("rule %d added: %s -> %s", rule.ID, rule.Pattern, args[1])))
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleType, "type", string(model.RuleTypePattern), "rule type (pattern, default_pattern)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the rule disabled")
	return cmd
}

func rulesEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <id>", "Enable a rule"
	if !enable {
		use, short = "disable <id>", "Disable a rule"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetRuleEnabled(ctx, id, enable); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("rule %d updated", id)))
			return nil
		},
	}
}

func rulesMoveCmd(up bool) *cobra.Command {
	use, short := "move-up <id>", "Move a rule earlier within its type"
	if !up {
		use, short = "move-down <id>", "Move a rule later within its type"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + `. Rules never move across the type boundary: custom rules always evaluate before defaults.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleSet, err := store.ListRules(ctx)
			if err != nil {
				return err
			}

			move := rules.MoveDown
			if up {
				move = rules.MoveUp
			}
			changed, err := move(ruleSet, id)
			if err != nil {
				return err
			}
			if changed == nil {
				fmt.Println(cli.FormatWarning("rule is already at the edge of its type"))
				return nil
			}

			if err := store.SwapRuleOrders(ctx, changed[0], changed[1]); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("rule %d moved", id)))
			return nil
		},
	}
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule id %q", args[0])
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRule(ctx, id); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("rule %d deleted", id)))
			return nil
		},
	}
}
