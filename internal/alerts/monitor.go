package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/recurring"
	"github.com/Veraticus/spice-insights/internal/scheduler"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/stats"
)

// recurringLookback is how much history recurring detection looks at.
const recurringLookback = model.TimeframeYear

// Monitor periodically builds a snapshot from the repositories and evaluates
// the alert rules against it.
type Monitor struct {
	transactions service.TransactionRepository
	budgets      service.BudgetRepository
	evaluator    *Evaluator
	detector     *stats.AnomalyDetector
	clock        func() time.Time
	policy       config.PolicyConfig
}

// NewMonitor creates a monitor.
func NewMonitor(evaluator *Evaluator, transactions service.TransactionRepository, budgets service.BudgetRepository, policy config.PolicyConfig) *Monitor {
	return &Monitor{
		transactions: transactions,
		budgets:      budgets,
		evaluator:    evaluator,
		detector:     stats.NewAnomalyDetector(policy),
		clock:        time.Now,
		policy:       policy,
	}
}

// Snapshot loads the current spending state. Category statistics and anomalies
// cover the last month; each budget is measured over its own period.
func (m *Monitor) Snapshot(ctx context.Context) (*Snapshot, error) {
	now := m.clock()
	lookback := recurringLookback.Range(now)

	history, err := m.transactions.GetTransactions(ctx, service.TransactionFilter{
		StartDate: &lookback.Start,
		EndDate:   &lookback.End,
		Type:      model.TypeExpense,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	budgets, err := m.budgets.GetBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}

	month := stats.InWindow(history, model.TimeframeMonth.Range(now))
	summary, err := stats.AnalyzeContext(ctx, month, m.policy.ChunkSize)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Now:       now,
		Summary:   summary,
		Progress:  stats.ProgressByPeriod(budgets, history, now, m.policy.BudgetTiers),
		Anomalies: m.detector.Detect(month, summary),
		Recurring: recurring.Detect(history),
	}, nil
}

// RunOnce builds a snapshot and evaluates it.
func (m *Monitor) RunOnce(ctx context.Context) error {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	result, err := m.evaluator.Evaluate(ctx, snap)
	if err != nil {
		return err
	}
	for _, failure := range result.Failures {
		if IsRuleFailure(failure) {
			slog.Warn("Alert rule failed", "error", failure)
			continue
		}
		slog.Error("Alert dispatch failed", "error", failure)
	}
	return nil
}

// Task wraps the monitor for the scheduler.
func (m *Monitor) Task() *scheduler.Task {
	return &scheduler.Task{
		Name:     "alert-monitor",
		Interval: m.policy.MonitorInterval,
		Run:      m.RunOnce,
	}
}
