package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-insights/internal/cli"
	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

// reminderTimeLayouts are the accepted --at formats, tried in order.
var reminderTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reminders",
		Aliases: []string{"reminder"},
		Short:   "Schedule reminders",
	}

	cmd.AddCommand(remindersAddCmd(), remindersListCmd(), remindersRunCmd(), remindersRemoveCmd())
	return cmd
}

func remindersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Schedule a reminder",
		Long: `Schedule a reminder. Times without a zone are local.

Examples:
  insights reminders add "Review budgets" --at "2024-07-01 09:00" --every monthly
  insights reminders add "Cancel trial" --at 2024-06-28 --message "Streaming trial ends"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			at, _ := cmd.Flags().GetString("at")
			every, _ := cmd.Flags().GetString("every")
			message, _ := cmd.Flags().GetString("message")

			first, err := parseReminderTime(at)
			if err != nil {
				return err
			}

			return withApp(ctx, func(a *app) error {
				r, err := a.reminders.Add(ctx, args[0], message, first, model.Recurrence(every))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Reminder %q scheduled for %s (%s)",
					r.Title, r.NextTrigger.Local().Format("2006-01-02 15:04"), r.ID)))
				return err
			})
		},
	}

	cmd.Flags().String("at", "", "First trigger time (RFC3339, \"2006-01-02 15:04\" or \"2006-01-02\")")
	cmd.Flags().String("every", string(model.RecurNone), "none, daily, weekly or monthly")
	cmd.Flags().StringP("message", "m", "", "Longer text sent with the reminder")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func remindersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				reminders, err := a.reminders.List(ctx)
				if err != nil {
					return err
				}
				if len(reminders) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No reminders scheduled"))
					return err
				}
				rows := make([][]string, 0, len(reminders))
				for _, r := range reminders {
					next := "done"
					if r.Active {
						next = r.NextTrigger.Local().Format("2006-01-02 15:04")
					}
					last := "never"
					if r.LastDelivered != nil {
						last = r.LastDelivered.Local().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{r.ID, r.Title, string(r.Recurrence), next, last})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(),
					cli.RenderTable([]string{"ID", "Title", "Repeats", "Next", "Last sent"}, rows))
				return err
			})
		},
	}
}

func remindersRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Deliver reminders that are due now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				result, err := a.reminders.RunDue(ctx, time.Now())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if _, err := fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf(
					"%d due, %d delivered, %d suppressed, %d waiting for the next run",
					result.Queued, result.Delivered, result.Suppressed, result.Deferred))); err != nil {
					return err
				}
				for _, f := range result.Failures {
					if _, err := fmt.Fprintln(out, cli.FormatWarning(f.Error())); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func remindersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a reminder",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				if err := a.reminders.Remove(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed reminder "+args[0]))
				return err
			})
		},
	}
}

func parseReminderTime(s string) (time.Time, error) {
	for _, layout := range reminderTimeLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, common.InvalidInputf("cannot read time %q", s)
}
