package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/service"
)

// historyLookback is the minimum history loaded for an analysis so forecasts
// and recurring detection see more than the selected timeframe.
const historyLookback = model.TimeframeYear

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze spending against your budgets",
		Long: `Summarize spending per category over a timeframe, check budgets, flag
unusual transactions and suggest what to change.`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}

	cmd.Flags().StringP("timeframe", "t", "month", "week, month, quarter, year or all")
	cmd.Flags().Bool("json", false, "Print the analysis as JSON")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	tfFlag, _ := cmd.Flags().GetString("timeframe")
	asJSON, _ := cmd.Flags().GetBool("json")

	timeframe, err := model.ParseTimeframe(tfFlag)
	if err != nil {
		return err
	}

	return withApp(ctx, func(a *app) error {
		filter := service.TransactionFilter{}
		if timeframe != model.TimeframeAll {
			now := time.Now()
			start := historyLookback.Range(now).Start
			if tfStart := timeframe.Range(now).Start; tfStart.Before(start) {
				start = tfStart
			}
			filter.StartDate = &start
		}

		transactions, err := a.store.GetTransactions(ctx, filter)
		if err != nil {
			return err
		}
		budgets, err := a.store.GetBudgets(ctx)
		if err != nil {
			return err
		}

		analysis, err := a.engine.Analyze(ctx, transactions, budgets, timeframe)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), analysis)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), renderAnalysis(analysis))
		return err
	})
}

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast [category]",
		Short: "Forecast next month's spending",
		Long:  `Forecast next month's spending for one category, or for everything when no category is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")

			category := ""
			if len(args) == 1 {
				category = args[0]
			}

			return withApp(ctx, func(a *app) error {
				forecast, err := a.engine.Forecast(ctx, category)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), forecast)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), renderForecast(forecast))
				return err
			})
		},
	}

	cmd.Flags().Bool("json", false, "Print the forecast as JSON")

	return cmd
}

func splitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <category>",
		Short: "Suggest sub-categories for a broad category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")

			return withApp(ctx, func(a *app) error {
				split, err := a.engine.SuggestSplit(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), split)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), renderSplit(args[0], split))
				return err
			})
		},
	}

	cmd.Flags().Bool("json", false, "Print the suggestion as JSON")

	return cmd
}
