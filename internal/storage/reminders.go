package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

// SaveReminder creates or replaces a reminder.
func (s *SQLiteStorage) SaveReminder(ctx context.Context, reminder *model.Reminder) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateReminder(reminder); err != nil {
		return err
	}

	createdAt := reminder.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, title, message, recurrence, next_trigger, last_delivered, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			message = excluded.message,
			recurrence = excluded.recurrence,
			next_trigger = excluded.next_trigger,
			last_delivered = excluded.last_delivered,
			active = excluded.active`,
		reminder.ID,
		reminder.Title,
		reminder.Message,
		string(reminder.Recurrence),
		reminder.NextTrigger.UTC(),
		nullableTime(reminder.LastDelivered),
		reminder.Active,
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save reminder %s: %w", reminder.ID, err)
	}
	return nil
}

// GetReminders returns every reminder ordered by next trigger.
func (s *SQLiteStorage) GetReminders(ctx context.Context) ([]model.Reminder, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, message, recurrence, next_trigger, last_delivered, active, created_at
		FROM reminders
		ORDER BY next_trigger, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reminders []model.Reminder
	for rows.Next() {
		var (
			r             model.Reminder
			recurrence    string
			lastDelivered sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Message, &recurrence, &r.NextTrigger,
			&lastDelivered, &r.Active, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.Recurrence = model.Recurrence(recurrence)
		if lastDelivered.Valid {
			t := lastDelivered.Time
			r.LastDelivered = &t
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}
	return reminders, nil
}

// DeleteReminder removes a reminder and its deliveries.
func (s *SQLiteStorage) DeleteReminder(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("reminder %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// AdvanceReminder queues the occurrence at scheduledFor for delivery and moves the
// reminder to next in a single transaction. A nil next deactivates the reminder.
// Queuing the same occurrence twice is a no-op.
func (s *SQLiteStorage) AdvanceReminder(ctx context.Context, id string, scheduledFor time.Time, next *time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var title, message string
		err := tx.QueryRowContext(ctx, "SELECT title, message FROM reminders WHERE id = ?", id).Scan(&title, &message)
		if err == sql.ErrNoRows {
			return fmt.Errorf("reminder %s: %w", id, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load reminder %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO reminder_deliveries (reminder_id, scheduled_for, title, message)
			VALUES (?, ?, ?, ?)`,
			id, scheduledFor.UTC(), title, message); err != nil {
			return fmt.Errorf("failed to queue delivery for %s: %w", id, err)
		}

		if next == nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE reminders SET active = 0, last_delivered = ? WHERE id = ?`,
				scheduledFor.UTC(), id)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE reminders SET next_trigger = ?, last_delivered = ? WHERE id = ?`,
				next.UTC(), scheduledFor.UTC(), id)
		}
		if err != nil {
			return fmt.Errorf("failed to reschedule reminder %s: %w", id, err)
		}
		return nil
	})
}

// PendingDeliveries returns queued deliveries that have not been sent yet, oldest first.
func (s *SQLiteStorage) PendingDeliveries(ctx context.Context) ([]model.ReminderDelivery, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reminder_id, scheduled_for, title, message
		FROM reminder_deliveries
		WHERE sent_at IS NULL
		ORDER BY scheduled_for, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deliveries []model.ReminderDelivery
	for rows.Next() {
		var d model.ReminderDelivery
		if err := rows.Scan(&d.ID, &d.ReminderID, &d.ScheduledFor, &d.Title, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deliveries: %w", err)
	}
	return deliveries, nil
}

// MarkDelivered records that a queued delivery was sent.
func (s *SQLiteStorage) MarkDelivered(ctx context.Context, deliveryID int64, sentAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE reminder_deliveries SET sent_at = ? WHERE id = ? AND sent_at IS NULL",
		sentAt.UTC(), deliveryID)
	if err != nil {
		return fmt.Errorf("failed to mark delivery %d: %w", deliveryID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("pending delivery %d: %w", deliveryID, common.ErrNotFound)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
