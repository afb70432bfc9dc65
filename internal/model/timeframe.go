package model

import (
	"fmt"
	"time"
)

// Timeframe selects the analysis window relative to "now".
type Timeframe string

// Supported timeframes.
const (
	TimeframeWeek    Timeframe = "week"
	TimeframeMonth   Timeframe = "month"
	TimeframeQuarter Timeframe = "quarter"
	TimeframeYear    Timeframe = "year"
	TimeframeAll     Timeframe = "all"
)

// ParseTimeframe converts user input into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear, TimeframeAll:
		return tf, nil
	case "":
		return TimeframeMonth, nil
	default:
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
}

// Window is a half-open date range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of whole days covered by the window, at least 1.
func (w Window) Days() int {
	days := int(w.End.Sub(w.Start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Range returns the window covered by the timeframe ending at now.
// TimeframeAll starts at the zero time.
func (tf Timeframe) Range(now time.Time) Window {
	end := now
	switch tf {
	case TimeframeWeek:
		return Window{Start: now.AddDate(0, 0, -7), End: end}
	case TimeframeQuarter:
		return Window{Start: now.AddDate(0, -3, 0), End: end}
	case TimeframeYear:
		return Window{Start: now.AddDate(-1, 0, 0), End: end}
	case TimeframeAll:
		return Window{End: end}
	default:
		return Window{Start: now.AddDate(0, -1, 0), End: end}
	}
}

// SpanOf returns the window from the earliest to one day past the latest transaction.
func SpanOf(transactions []Transaction) Window {
	if len(transactions) == 0 {
		return Window{}
	}
	start, end := transactions[0].Date, transactions[0].Date
	for _, txn := range transactions[1:] {
		if txn.Date.Before(start) {
			start = txn.Date
		}
		if txn.Date.After(end) {
			end = txn.Date
		}
	}
	return Window{Start: start, End: end.AddDate(0, 0, 1)}
}
