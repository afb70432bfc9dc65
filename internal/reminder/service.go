package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-insights/internal/alerts"
	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/scheduler"
	"github.com/Veraticus/spice-insights/internal/service"
)

// maxCatchUp bounds how many missed occurrences of one reminder are queued in
// a single run. Older occurrences beyond it are skipped.
const maxCatchUp = 31

// Deliverer offers an alert to the delivery gates and reports the suppression
// reason, or "" when it was sent. Delivered reports whether an alert ID was
// already sent, even by an earlier process.
type Deliverer interface {
	Offer(ctx context.Context, alert model.Alert) (string, error)
	Delivered(ctx context.Context, alertID string) (bool, error)
}

// RunResult summarizes one RunDue pass.
type RunResult struct {
	Failures   []error
	Queued     int
	Delivered  int
	Suppressed int
	Deferred   int // Left pending for the next run
}

// Service manages reminders on top of a ReminderStore outbox.
type Service struct {
	store     service.ReminderStore
	deliverer Deliverer
	clock     func() time.Time
}

// NewService creates a reminder service.
func NewService(store service.ReminderStore, deliverer Deliverer) *Service {
	return &Service{
		store:     store,
		deliverer: deliverer,
		clock:     time.Now,
	}
}

// Add schedules a new reminder firing first at first.
func (s *Service) Add(ctx context.Context, title, message string, first time.Time, recurrence model.Recurrence) (*model.Reminder, error) {
	if recurrence == "" {
		recurrence = model.RecurNone
	}
	r := &model.Reminder{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(title),
		Message:     message,
		Recurrence:  recurrence,
		NextTrigger: first.UTC(),
		CreatedAt:   s.clock().UTC(),
		Active:      true,
	}
	if err := r.Validate(); err != nil {
		return nil, common.InvalidInputf("%v", err)
	}
	if err := s.store.SaveReminder(ctx, r); err != nil {
		return nil, err
	}
	slog.Info("Reminder scheduled", "id", r.ID, "title", r.Title, "next", r.NextTrigger, "recurrence", r.Recurrence)
	return r, nil
}

// List returns every reminder ordered by next trigger.
func (s *Service) List(ctx context.Context) ([]model.Reminder, error) {
	return s.store.GetReminders(ctx)
}

// Remove deletes a reminder.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.store.DeleteReminder(ctx, id)
}

// RunDue queues every occurrence that is due at now and then sends whatever is
// pending. Queuing and rescheduling happen in one store transaction, so a
// crash between the two steps leaves the occurrence pending rather than lost,
// and the next run sends it.
func (s *Service) RunDue(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	reminders, err := s.store.GetReminders(ctx)
	if err != nil {
		return result, err
	}

	for i := range reminders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		queued, err := s.advance(ctx, &reminders[i], now)
		result.Queued += queued
		if err != nil {
			return result, err
		}
	}

	if err := s.sendPending(ctx, &result); err != nil {
		return result, err
	}

	if result.Queued > 0 || result.Delivered > 0 {
		slog.Info("Reminders processed",
			"queued", result.Queued,
			"delivered", result.Delivered,
			"suppressed", result.Suppressed,
			"deferred", result.Deferred)
	}
	return result, nil
}

// Task wraps RunDue in a scheduler task.
func (s *Service) Task(interval time.Duration) *scheduler.Task {
	return &scheduler.Task{
		Name:     "reminders",
		Interval: interval,
		Run: func(ctx context.Context) error {
			result, err := s.RunDue(ctx, s.clock())
			for _, f := range result.Failures {
				slog.Warn("Reminder delivery failed", "error", f)
			}
			return err
		},
	}
}

func (s *Service) advance(ctx context.Context, r *model.Reminder, now time.Time) (int, error) {
	if !r.Due(now) {
		return 0, nil
	}

	queued := 0
	trigger := r.NextTrigger
	for !trigger.After(now) {
		next := NextTrigger(trigger, r.Recurrence)
		if next != nil && queued == maxCatchUp-1 {
			next = nextAfter(*next, r.Recurrence, now)
		}
		if err := s.store.AdvanceReminder(ctx, r.ID, trigger, next); err != nil {
			return queued, fmt.Errorf("failed to advance reminder %s: %w", r.ID, err)
		}
		queued++
		if next == nil {
			break
		}
		trigger = *next
	}
	return queued, nil
}

func (s *Service) sendPending(ctx context.Context, result *RunResult) error {
	pending, err := s.store.PendingDeliveries(ctx)
	if err != nil {
		return err
	}

	for _, d := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		alert := alertFor(d)
		sent, err := s.deliverer.Delivered(ctx, alert.ID)
		if err != nil {
			return err
		}
		if sent {
			// Sent by an earlier run that failed to record it.
			slog.Info("Reminder already delivered, settling", "delivery", d.ID, "title", d.Title)
			if err := s.store.MarkDelivered(ctx, d.ID, s.clock()); err != nil {
				return err
			}
			continue
		}

		reason, err := s.deliverer.Offer(ctx, alert)
		if err != nil {
			if !errors.Is(err, common.ErrDispatchFailed) {
				return err
			}
			result.Failures = append(result.Failures, err)
			result.Deferred++
			continue
		}

		switch reason {
		case alerts.ReasonQuietHours, alerts.ReasonRateLimited:
			// Try again once the gate opens.
			result.Deferred++
			continue
		case "":
			result.Delivered++
		default:
			result.Suppressed++
		}

		if err := s.store.MarkDelivered(ctx, d.ID, s.clock()); err != nil {
			return err
		}
	}
	return nil
}

func alertFor(d model.ReminderDelivery) model.Alert {
	message := d.Message
	if message == "" {
		message = d.Title
	}
	return model.Alert{
		ID:       fmt.Sprintf("reminder-%d", d.ID),
		Type:     model.AlertReminder,
		Category: model.CategoryReminder,
		Title:    d.Title,
		Message:  message,
		Priority: model.PriorityMedium,
		Subject:  d.ReminderID,
		Data: map[string]any{
			"scheduled_for": d.ScheduledFor,
		},
	}
}
