package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-insights/internal/alerts"
	"github.com/Veraticus/spice-insights/internal/cli"
	"github.com/Veraticus/spice-insights/internal/events"
	"github.com/Veraticus/spice-insights/internal/scheduler"
)

func monitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch spending and send alerts and reminders",
		Long: `Evaluate alert rules on the policy's monitor interval and deliver due
reminders until interrupted. With --once, run a single pass of each and exit.`,
		Args: cobra.NoArgs,
		RunE: runMonitor,
	}

	cmd.Flags().Bool("once", false, "Run one alert pass and one reminder pass, then exit")
	cmd.Flags().Duration("reminder-interval", time.Minute, "How often to check for due reminders")
	_ = viper.BindPFlag("reminders.interval", cmd.Flags().Lookup("reminder-interval"))

	return cmd
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	once, _ := cmd.Flags().GetBool("once")
	interval := viper.GetDuration("reminders.interval")

	return withApp(cmd.Context(), func(a *app) error {
		// Loading up front seeds the default rules and surfaces a broken store early.
		rules, err := a.rules.Load(cmd.Context())
		if err != nil {
			return err
		}

		tasks := []*scheduler.Task{
			alerts.NewMonitor(a.evaluator, a.store, a.store, a.policy).Task(),
			a.reminders.Task(interval),
		}

		if once {
			for _, task := range tasks {
				if err := task.RunNow(cmd.Context()); err != nil {
					return fmt.Errorf("%s: %w", task.Name, err)
				}
			}
			return nil
		}

		handler := cli.NewInterruptHandler(os.Stderr, "Monitoring")
		ctx := handler.HandleInterrupts(cmd.Context())

		go a.engine.Watch(ctx)
		go logEvents(ctx, a.bus)

		for _, task := range tasks {
			task.Start(ctx)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf(
			"Monitoring %d rules every %s, reminders every %s. Press Ctrl+C to stop.",
			len(rules), a.policy.MonitorInterval, interval)))
		if err != nil {
			slog.Warn("Failed to write monitor banner", "error", err)
		}

		<-ctx.Done()
		for _, task := range tasks {
			task.Stop()
		}

		if handler.WasInterrupted() {
			return nil
		}
		return ctx.Err()
	})
}

// logEvents traces bus activity at debug level until ctx ends.
func logEvents(ctx context.Context, bus *events.Bus) {
	sub := bus.Subscribe(32)
	defer bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			switch ev.Type {
			case events.AlertSuppressed:
				slog.Debug("Alert suppressed", "alert_id", alertID(ev), "reason", ev.Reason)
			case events.AnalysisCompleted:
				slog.Debug("Analysis refreshed", "kind", ev.Kind)
			}
		}
	}
}

func alertID(ev events.Event) string {
	if ev.Alert == nil {
		return ""
	}
	return ev.Alert.ID
}
