package model

import (
	"fmt"
	"time"
)

// Recurrence is how often a reminder repeats.
type Recurrence string

// Reminder recurrences.
const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

// IsValid reports whether r is a known recurrence.
func (r Recurrence) IsValid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return true
	default:
		return false
	}
}

// Reminder is a user-scheduled nudge, optionally repeating.
type Reminder struct {
	NextTrigger   time.Time  `json:"next_trigger"`
	CreatedAt     time.Time  `json:"created_at"`
	LastDelivered *time.Time `json:"last_delivered,omitempty"`
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	Recurrence    Recurrence `json:"recurrence"`
	Active        bool       `json:"active"`
}

// Due reports whether the reminder should fire at now.
func (r *Reminder) Due(now time.Time) bool {
	return r.Active && !r.NextTrigger.After(now)
}

// Validate ensures the reminder can be scheduled.
func (r *Reminder) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("reminder ID is required")
	}
	if r.Title == "" {
		return fmt.Errorf("reminder title is required")
	}
	if !r.Recurrence.IsValid() {
		return fmt.Errorf("unknown recurrence %q", r.Recurrence)
	}
	if r.NextTrigger.IsZero() {
		return fmt.Errorf("reminder %q has no trigger time", r.Title)
	}
	return nil
}

// ReminderDelivery is one occurrence of a reminder waiting to be sent.
type ReminderDelivery struct {
	ScheduledFor time.Time  `json:"scheduled_for"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	ReminderID   string     `json:"reminder_id"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	ID           int64      `json:"id"`
}
