// Package service defines the interfaces the insights engine depends on.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-insights/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string
	Type      model.TransactionType
	Limit     int
	Offset    int
}

// TransactionRepository is the read side of the transaction store.
// The engine never writes through it.
type TransactionRepository interface {
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
}

// BudgetRepository provides the user's budgets.
type BudgetRepository interface {
	GetBudgets(ctx context.Context) ([]model.Budget, error)
}

// KVStore persists opaque JSON blobs by key.
// Get returns common.ErrNotFound for a missing key.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// NotificationDispatcher receives alerts that passed every delivery gate.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, alert model.Alert) error
}

// ReminderStore persists reminders and their pending deliveries.
type ReminderStore interface {
	SaveReminder(ctx context.Context, reminder *model.Reminder) error
	GetReminders(ctx context.Context) ([]model.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
	// AdvanceReminder records a pending delivery for the occurrence at
	// scheduledFor and stores next as the new trigger in one transaction.
	// A nil next deactivates the reminder.
	AdvanceReminder(ctx context.Context, id string, scheduledFor time.Time, next *time.Time) error
	PendingDeliveries(ctx context.Context) ([]model.ReminderDelivery, error)
	MarkDelivered(ctx context.Context, deliveryID int64, sentAt time.Time) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
