package main

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-insights/internal/cli"
	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/events"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/stats"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage category budgets",
	}

	cmd.AddCommand(budgetsSetCmd(), budgetsListCmd(), budgetsRemoveCmd())
	return cmd
}

func budgetsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Create or replace the budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			period, _ := cmd.Flags().GetString("period")

			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) {
				return common.InvalidInputf("amount %q is not a number", args[1])
			}
			if amount <= 0 {
				return common.InvalidInputf("amount must be positive, got %s", args[1])
			}
			budget := &model.Budget{
				Category: args[0],
				Period:   model.BudgetPeriod(period),
				Amount:   amount,
			}
			if _, ok := budget.Period.Timeframe(); !ok {
				return common.InvalidInputf("unknown period %q", period)
			}

			return withApp(ctx, func(a *app) error {
				if err := a.store.SaveBudget(ctx, budget); err != nil {
					return err
				}
				a.bus.Publish(events.Event{Type: events.DataChanged, Reason: "budget"})
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Budget for %s set to %s per %s",
					budget.Category, cli.FormatAmount(budget.Amount), periodNoun(budget.Period))))
				return err
			})
		},
	}

	cmd.Flags().StringP("period", "p", string(model.PeriodMonthly), "weekly, monthly or yearly")
	return cmd
}

func budgetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets with spending so far this period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				budgets, err := a.store.GetBudgets(ctx)
				if err != nil {
					return err
				}
				if len(budgets) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No budgets yet. Add one with: insights budgets set <category> <amount>"))
					return err
				}

				progress, err := currentProgress(cmd, a, budgets)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(progress))
				for _, p := range progress {
					rows = append(rows, []string{
						p.Budget.Category,
						string(p.Budget.Period),
						cli.FormatAmount(p.Spent),
						cli.FormatAmount(p.Budget.Amount),
						cli.FormatAmount(p.Remaining),
						cli.FormatStatus(p.Status),
					})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(),
					cli.RenderTable([]string{"Category", "Period", "Spent", "Limit", "Remaining", "Status"}, rows))
				return err
			})
		},
	}
}

func budgetsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <category>",
		Aliases: []string{"rm"},
		Short:   "Remove the budget for a category",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				if err := a.store.DeleteBudget(ctx, args[0]); err != nil {
					return err
				}
				a.bus.Publish(events.Event{Type: events.DataChanged, Reason: "budget"})
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed budget for "+args[0]))
				return err
			})
		},
	}
}

// currentProgress measures each budget against the expenses of its own
// current period, keeping the order of budgets.
func currentProgress(cmd *cobra.Command, a *app, budgets []model.Budget) ([]model.BudgetProgress, error) {
	now := time.Now()
	longest := model.TimeframeYear.Range(now)
	expenses, err := a.store.GetTransactions(cmd.Context(), service.TransactionFilter{
		StartDate: &longest.Start,
		EndDate:   &longest.End,
		Type:      model.TypeExpense,
	})
	if err != nil {
		return nil, err
	}
	return stats.ProgressByPeriod(budgets, expenses, now, a.policy.BudgetTiers), nil
}

func periodNoun(p model.BudgetPeriod) string {
	switch p {
	case model.PeriodWeekly:
		return "week"
	case model.PeriodYearly:
		return "year"
	default:
		return "month"
	}
}
