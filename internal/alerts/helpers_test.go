package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/events"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/notify"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/storage"
)

// fakeClock is a settable time source shared by every component under test.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var noon = time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

type harness struct {
	evaluator *Evaluator
	rules     *RuleStore
	gate      *Gate
	recorder  *notify.Recorder
	kv        *storage.MemoryKV
	bus       *events.Bus
	clock     *fakeClock
}

func newHarness(t *testing.T, policy config.PolicyConfig) *harness {
	t.Helper()

	h := &harness{
		kv:       storage.NewMemoryKV(),
		recorder: &notify.Recorder{},
		bus:      events.NewBus(),
		clock:    &fakeClock{now: noon},
	}
	h.rules = NewRuleStore(h.kv)
	h.rules.clock = h.clock.Now
	h.gate = NewGate(policy, model.DefaultPreferences())
	h.gate.clock = h.clock.Now

	ev, err := NewEvaluator(Config{
		Rules:      h.rules,
		Gate:       h.gate,
		Dispatcher: h.recorder,
		KV:         h.kv,
		Bus:        h.bus,
		Retry:      service.RetryOptions{MaxAttempts: 1},
		Policy:     policy,
	})
	require.NoError(t, err)
	ev.clock = h.clock.Now
	h.evaluator = ev
	return h
}

func budgetAlert(title string) model.Alert {
	return model.Alert{
		Type:     model.AlertBudgetWarning,
		Category: model.CategoryBudget,
		Title:    title,
		Priority: model.PriorityMedium,
	}
}

func progress(category string, amount, spent float64) model.BudgetProgress {
	tiers := config.DefaultPolicy().BudgetTiers
	usage := spent / amount
	return model.BudgetProgress{
		Budget:    model.Budget{Category: category, Amount: amount, Period: model.PeriodMonthly},
		Spent:     spent,
		Remaining: amount - spent,
		Usage:     usage,
		Status:    tiers.StatusFor(usage),
	}
}
