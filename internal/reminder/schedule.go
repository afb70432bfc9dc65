// Package reminder schedules user reminders and delivers them through the alert gates.
package reminder

import (
	"time"

	"github.com/Veraticus/spice-insights/internal/model"
)

// NextTrigger returns the occurrence after from, or nil for a one-off reminder.
// Monthly reminders keep their day of month, clamped to the last day of shorter
// months, so a reminder on the 31st fires on Feb 29 rather than in March.
func NextTrigger(from time.Time, recurrence model.Recurrence) *time.Time {
	var next time.Time
	switch recurrence {
	case model.RecurDaily:
		next = from.AddDate(0, 0, 1)
	case model.RecurWeekly:
		next = from.AddDate(0, 0, 7)
	case model.RecurMonthly:
		next = addMonth(from)
	default:
		return nil
	}
	return &next
}

func addMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfNext := time.Date(year, month+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(firstOfNext); day > last {
		day = last
	}
	return firstOfNext.AddDate(0, 0, day-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// nextAfter advances from until it is strictly after now.
func nextAfter(from time.Time, recurrence model.Recurrence, now time.Time) *time.Time {
	t := from
	for !t.After(now) {
		next := NextTrigger(t, recurrence)
		if next == nil {
			return nil
		}
		t = *next
	}
	return &t
}
