package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-insights/internal/cli"
	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage alert rules",
	}

	cmd.AddCommand(
		rulesListCmd(),
		rulesAddCmd(),
		rulesToggleCmd("enable", "Enable an alert rule", true),
		rulesToggleCmd("disable", "Stop an alert rule from firing", false),
		rulesRemoveCmd(),
		rulesExportCmd(),
		rulesImportCmd(),
		rulesHistoryCmd(),
	)
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				rules, err := a.rules.List(ctx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(rules))
				for _, r := range rules {
					enabled := "no"
					if r.Enabled {
						enabled = "yes"
					}
					condition := fmt.Sprintf("%g", r.Threshold)
					if r.Type == model.RuleCustom {
						condition = r.Expression
					}
					rows = append(rows, []string{
						r.ID,
						r.Name,
						string(r.Type),
						condition,
						cli.FormatPriority(r.Severity),
						string(r.Frequency),
						enabled,
					})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(),
					cli.RenderTable([]string{"ID", "Name", "Type", "Condition", "Severity", "Frequency", "Enabled"}, rows))
				return err
			})
		},
	}
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an alert rule",
		Long: `Add an alert rule. Custom rules take a CEL expression over the current
snapshot, for example:

  insights rules add "Dining spike" --type custom \
    --expression '"dining" in spent && spent["dining"] > 500.0'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			ruleType, _ := flags.GetString("type")
			threshold, _ := flags.GetFloat64("threshold")
			category, _ := flags.GetString("category")
			expression, _ := flags.GetString("expression")
			severity, _ := flags.GetString("severity")
			frequency, _ := flags.GetString("frequency")
			message, _ := flags.GetString("message")

			rule := &model.AlertRule{
				Name:            args[0],
				Type:            model.RuleType(ruleType),
				Threshold:       threshold,
				Category:        category,
				Expression:      expression,
				Severity:        model.Priority(severity),
				Frequency:       model.RuleFrequency(frequency),
				MessageTemplate: message,
				Enabled:         true,
			}

			return withApp(ctx, func(a *app) error {
				if rule.Type == model.RuleCustom {
					if err := a.evaluator.Expressions().Check(rule.Expression); err != nil {
						return err
					}
				}
				if err := a.rules.Add(ctx, rule); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added rule %s (%s)", rule.Name, rule.ID)))
				return err
			})
		},
	}

	cmd.Flags().String("type", string(model.RuleBudgetThreshold), "budget_threshold, anomaly_detection, recurring_transaction or custom")
	cmd.Flags().Float64("threshold", 0, "Usage fraction, z-score or overdue days, depending on type")
	cmd.Flags().String("category", "", "Only alert about this category")
	cmd.Flags().String("expression", "", "CEL expression for custom rules")
	cmd.Flags().String("severity", string(model.PriorityMedium), "low, medium or high")
	cmd.Flags().String("frequency", string(model.FrequencyDaily), "realtime, hourly, daily or weekly")
	cmd.Flags().String("message", "", "Message template, e.g. {{.Category}} is at {{.Percent}}%")
	return cmd
}

func rulesToggleCmd(verb, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				rules, err := a.rules.List(ctx)
				if err != nil {
					return err
				}
				for i := range rules {
					if rules[i].ID != args[0] {
						continue
					}
					rules[i].Enabled = enabled
					if err := a.rules.Update(ctx, &rules[i]); err != nil {
						return err
					}
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rule %s %sd", rules[i].Name, verb)))
					return err
				}
				return fmt.Errorf("rule %s: %w", args[0], common.ErrNotFound)
			})
		},
	}
}

func rulesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an alert rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				if err := a.rules.Remove(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed rule "+args[0]))
				return err
			})
		},
	}
}

func rulesExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all rules as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			output, _ := cmd.Flags().GetString("output")
			return withApp(ctx, func(a *app) error {
				data, err := a.rules.Export(ctx)
				if err != nil {
					return err
				}
				return writeExport(cmd, output, data)
			})
		},
	}

	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func rulesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Replace all rules with an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read export: %w", err)
			}
			return withApp(ctx, func(a *app) error {
				existing, err := a.rules.List(ctx)
				if err != nil {
					return err
				}
				ok, err := confirmReplace(cmd, len(existing), "rules")
				if err != nil || !ok {
					return err
				}
				n, err := a.rules.Import(ctx, data)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d rules", n)))
				return err
			})
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Replace existing rules without asking")
	return cmd
}

func rulesHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently delivered alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(ctx, func(a *app) error {
				history, err := a.evaluator.History(ctx)
				if err != nil {
					return err
				}
				if len(history) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No alerts delivered yet"))
					return err
				}
				if limit > 0 && len(history) > limit {
					history = history[len(history)-limit:]
				}
				rows := make([][]string, 0, len(history))
				for i := len(history) - 1; i >= 0; i-- {
					alert := history[i]
					rows = append(rows, []string{
						alert.CreatedAt.Local().Format("2006-01-02 15:04"),
						cli.FormatPriority(alert.Priority),
						string(alert.Category),
						alert.Title,
					})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(),
					cli.RenderTable([]string{"When", "Priority", "Category", "Alert"}, rows))
				return err
			})
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "Show at most this many alerts, newest first")
	return cmd
}
