package alerts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/testutil"
)

func TestMonitor_RunOnce(t *testing.T) {
	ctx := context.Background()
	policy := config.DefaultPolicy()
	h := newHarness(t, policy)

	db := testutil.SetupTestDB(t,
		testutil.Expenses("food", noon.AddDate(0, 0, -1), 300, 250, 400),
		[]model.Budget{
			{Category: "food", Amount: 1000, Period: model.PeriodMonthly},
			{Category: "rent", Amount: 1500, Period: model.PeriodMonthly},
		},
	)

	monitor := NewMonitor(h.evaluator, db.Storage, db.Storage, policy)
	monitor.clock = h.clock.Now

	snap, err := monitor.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, noon, snap.Now)
	assert.InDelta(t, 950.0, snap.Summary.Total, 1e-9)
	require.Len(t, snap.Progress, 2)
	assert.InDelta(t, 0.95, snap.Progress[0].Usage, 1e-9)
	assert.Equal(t, model.StatusCritical, snap.Progress[0].Status)

	require.NoError(t, monitor.RunOnce(ctx))

	alerts := h.recorder.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Budget Alert: food", alerts[0].Title)
	assert.Equal(t, model.PriorityMedium, alerts[0].Priority)
}

func TestMonitor_Task(t *testing.T) {
	policy := config.DefaultPolicy()
	h := newHarness(t, policy)
	db := testutil.SetupTestDB(t, nil, nil)

	task := NewMonitor(h.evaluator, db.Storage, db.Storage, policy).Task()

	assert.Equal(t, "alert-monitor", task.Name)
	assert.Equal(t, policy.MonitorInterval, task.Interval)
	require.NoError(t, task.RunNow(context.Background()))
	assert.Empty(t, h.recorder.Alerts())
}

func foodExpense(date time.Time, amount float64) model.Transaction {
	txn := model.Transaction{
		ID:          "food-" + date.Format("20060102"),
		Date:        date,
		Amount:      amount,
		Type:        model.TypeExpense,
		Category:    "food",
		Description: fmt.Sprintf("market %s", date.Format("Jan 2 2006")),
		AccountID:   "test",
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func TestMonitor_BudgetPeriods(t *testing.T) {
	recent := []model.Transaction{
		foodExpense(time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC), 150),
		foodExpense(time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC), 150),
		foodExpense(time.Date(2024, 6, 19, 12, 0, 0, 0, time.UTC), 40),
	}
	older := foodExpense(time.Date(2023, 9, 1, 12, 0, 0, 0, time.UTC), 900)

	tests := []struct {
		name       string
		budget     model.Budget
		wantSpent  float64
		wantAlerts []string
	}{
		{
			name:      "weekly budget only sees the last week",
			budget:    model.Budget{Category: "food", Amount: 100, Period: model.PeriodWeekly},
			wantSpent: 40,
		},
		{
			name:       "yearly budget sees the whole year",
			budget:     model.Budget{Category: "food", Amount: 1000, Period: model.PeriodYearly},
			wantSpent:  1240,
			wantAlerts: []string{"Budget Exceeded: food"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			policy := config.DefaultPolicy()
			h := newHarness(t, policy)

			db := testutil.SetupTestDB(t, append([]model.Transaction{older}, recent...), []model.Budget{tt.budget})
			monitor := NewMonitor(h.evaluator, db.Storage, db.Storage, policy)
			monitor.clock = h.clock.Now

			snap, err := monitor.Snapshot(ctx)
			require.NoError(t, err)
			require.Len(t, snap.Progress, 1)
			assert.InDelta(t, tt.wantSpent, snap.Progress[0].Spent, 1e-9)
			assert.InDelta(t, 340.0, snap.Summary.Total, 1e-9, "category statistics still cover one month")

			require.NoError(t, monitor.RunOnce(ctx))
			var titles []string
			for _, alert := range h.recorder.Alerts() {
				titles = append(titles, alert.Title)
			}
			assert.Equal(t, tt.wantAlerts, titles)
		})
	}
}
