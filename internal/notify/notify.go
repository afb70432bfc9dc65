// Package notify provides notification dispatchers for delivered alerts.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Veraticus/spice-insights/internal/cli"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/service"
)

var (
	_ service.NotificationDispatcher = (*LogDispatcher)(nil)
	_ service.NotificationDispatcher = (*ConsoleDispatcher)(nil)
	_ service.NotificationDispatcher = (*Recorder)(nil)
	_ service.NotificationDispatcher = Multi(nil)
)

// LogDispatcher writes alerts to the structured log.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher logging through logger, or the default logger when nil.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the alert.
func (d *LogDispatcher) Dispatch(ctx context.Context, alert model.Alert) error {
	d.logger.InfoContext(ctx, "Alert",
		"id", alert.ID,
		"type", alert.Type,
		"category", alert.Category,
		"priority", alert.Priority,
		"title", alert.Title,
		"message", alert.Message,
		"rule", alert.RuleID)
	return nil
}

// ConsoleDispatcher prints alerts to a terminal.
type ConsoleDispatcher struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewConsoleDispatcher creates a dispatcher writing to w, or stdout when nil.
func NewConsoleDispatcher(w io.Writer) *ConsoleDispatcher {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleDispatcher{writer: w}
}

// Dispatch prints the alert.
func (d *ConsoleDispatcher) Dispatch(_ context.Context, alert model.Alert) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	line := fmt.Sprintf("%s %s\n  %s\n",
		cli.FormatPriority(alert.Priority),
		cli.BoldStyle.Render(alert.Title),
		alert.Message)
	if _, err := fmt.Fprint(d.writer, line); err != nil {
		return fmt.Errorf("failed to write alert: %w", err)
	}
	return nil
}

// Recorder keeps dispatched alerts in memory. Err, when set, is returned
// from every Dispatch instead of recording.
type Recorder struct {
	Err    error
	alerts []model.Alert
	mu     sync.Mutex
}

// Dispatch records the alert.
func (r *Recorder) Dispatch(_ context.Context, alert model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.alerts = append(r.alerts, alert)
	return nil
}

// Alerts returns the recorded alerts in dispatch order.
func (r *Recorder) Alerts() []model.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Alert(nil), r.alerts...)
}

// Multi sends each alert to every dispatcher in order, stopping at the first error.
type Multi []service.NotificationDispatcher

// Dispatch fans the alert out.
func (m Multi) Dispatch(ctx context.Context, alert model.Alert) error {
	for _, d := range m {
		if err := d.Dispatch(ctx, alert); err != nil {
			return err
		}
	}
	return nil
}
