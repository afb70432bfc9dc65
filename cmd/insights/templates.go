package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-insights/internal/cli"
	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Share and reuse budget templates",
	}

	cmd.AddCommand(
		templatesListCmd(),
		templatesAddCmd(),
		templatesRateCmd(),
		templatesRemoveCmd(),
		templatesExportCmd(),
		templatesImportCmd(),
		templatesRecommendCmd(),
		templatesSeedCmd(),
	)
	return cmd
}

func templatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				templates, err := a.templates.List(ctx)
				if err != nil {
					return err
				}
				if len(templates) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No templates yet. Try: insights templates seed"))
					return err
				}
				rows := make([][]string, 0, len(templates))
				for _, t := range templates {
					rows = append(rows, []string{
						t.ID,
						t.Name,
						fmt.Sprintf("%d", t.Metadata.CategoryCount),
						cli.FormatAmount(t.Metadata.TotalAmount),
						fmt.Sprintf("%d", t.Usage.TimesUsed),
						fmt.Sprintf("%.1f", t.Usage.AvgRating),
					})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(),
					cli.RenderTable([]string{"ID", "Name", "Categories", "Total", "Used", "Rating"}, rows))
				return err
			})
		},
	}
}

func templatesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file.json>",
		Short: "Add a template from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}
			var tmpl model.BudgetTemplate
			if err := json.Unmarshal(data, &tmpl); err != nil {
				return common.InvalidInputf("%s is not a template: %v", args[0], err)
			}

			return withApp(ctx, func(a *app) error {
				if err := a.templates.Save(ctx, &tmpl); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved template %s (%s)", tmpl.Name, tmpl.ID)))
				return err
			})
		},
	}
}

func templatesRateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <1-5>",
		Short: "Record that you used a template and how well it worked",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var rating float64
			if _, err := fmt.Sscanf(args[1], "%g", &rating); err != nil {
				return common.InvalidInputf("rating %q is not a number", args[1])
			}
			return withApp(ctx, func(a *app) error {
				if err := a.templates.RecordUsage(ctx, args[0], rating); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Thanks, rating recorded"))
				return err
			})
		},
	}
}

func templatesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a template",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				if err := a.templates.Delete(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed template "+args[0]))
				return err
			})
		},
	}
}

func templatesExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all templates as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			output, _ := cmd.Flags().GetString("output")
			return withApp(ctx, func(a *app) error {
				data, err := a.templates.Export(ctx)
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

func templatesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Replace all templates with an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read export: %w", err)
			}
			return withApp(ctx, func(a *app) error {
				existing, err := a.templates.List(ctx)
				if err != nil {
					return err
				}
				ok, err := confirmReplace(cmd, len(existing), "templates")
				if err != nil || !ok {
					return err
				}
				n, err := a.templates.Import(ctx, data)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d templates", n)))
				return err
			})
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Replace existing templates without asking")
	return cmd
}

func templatesRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank templates against your spending profile",
		Long: `Rank stored templates by how well they fit you. Without flags the profile
is built from your budgets: their categories and their combined monthly total.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			categories, _ := cmd.Flags().GetStringSlice("categories")
			total, _ := cmd.Flags().GetFloat64("total")

			return withApp(ctx, func(a *app) error {
				profile := model.UserProfile{TopCategories: categories, TotalBudget: total}
				if len(profile.TopCategories) == 0 || profile.TotalBudget == 0 {
					fromBudgets, err := budgetProfile(cmd, a)
					if err != nil {
						return err
					}
					if len(profile.TopCategories) == 0 {
						profile.TopCategories = fromBudgets.TopCategories
					}
					if profile.TotalBudget == 0 {
						profile.TotalBudget = fromBudgets.TotalBudget
					}
				}

				rankings, err := a.engine.RecommendTemplates(ctx, profile)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), renderRankings(rankings))
				return err
			})
		},
	}

	cmd.Flags().StringSlice("categories", nil, "Categories you spend on, most important first")
	cmd.Flags().Float64("total", 0, "Total monthly budget")
	return cmd
}

func templatesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the built-in starter templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				n, err := a.templates.SeedDefaults(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %d starter templates", n)))
				return err
			})
		},
	}
}

// budgetProfile derives a profile from stored budgets, scaling each to a monthly amount.
func budgetProfile(cmd *cobra.Command, a *app) (model.UserProfile, error) {
	budgets, err := a.store.GetBudgets(cmd.Context())
	if err != nil {
		return model.UserProfile{}, err
	}
	var profile model.UserProfile
	for _, b := range budgets {
		profile.TopCategories = append(profile.TopCategories, b.Category)
		switch b.Period {
		case model.PeriodWeekly:
			profile.TotalBudget += b.Amount * 52 / 12
		case model.PeriodYearly:
			profile.TotalBudget += b.Amount / 12
		default:
			profile.TotalBudget += b.Amount
		}
	}
	return profile, nil
}

// confirmReplace asks before an import overwrites existing entries. The
// --yes flag or an empty store skips the question.
func confirmReplace(cmd *cobra.Command, existing int, noun string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes || existing == 0 {
		return true, nil
	}
	reader := cli.NewNonBlockingReader(cmd.InOrStdin())
	ok, err := cli.Confirm(cmd.Context(), reader, cmd.OutOrStdout(),
		fmt.Sprintf("Replace %d existing %s?", existing, noun))
	if err != nil {
		return false, err
	}
	if !ok {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Import canceled"))
		return false, err
	}
	return true, nil
}

func writeExport(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(data), "\n"))
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Exported to "+path))
	return err
}
