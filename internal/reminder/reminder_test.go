package reminder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-insights/internal/alerts"
	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/notify"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/storage"
	"github.com/Veraticus/spice-insights/internal/testutil"
)

var now = time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)

type fakeDeliverer struct {
	err    error
	reason string
	sent   []model.Alert
}

func (f *fakeDeliverer) Offer(_ context.Context, alert model.Alert) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.reason != "" {
		return f.reason, nil
	}
	f.sent = append(f.sent, alert)
	return "", nil
}

func (f *fakeDeliverer) Delivered(_ context.Context, alertID string) (bool, error) {
	for _, a := range f.sent {
		if a.ID == alertID {
			return true, nil
		}
	}
	return false, nil
}

func newService(t *testing.T, deliverer Deliverer) (*Service, *storage.SQLiteStorage) {
	t.Helper()
	db := testutil.SetupTestDB(t, nil, nil)
	svc := NewService(db.Storage, deliverer)
	svc.clock = func() time.Time { return now }
	return svc, db.Storage
}

func TestNextTrigger(t *testing.T) {
	tests := []struct {
		from       time.Time
		want       *time.Time
		name       string
		recurrence model.Recurrence
	}{
		{
			name:       "daily",
			from:       time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC),
			recurrence: model.RecurDaily,
			want:       ptr(time.Date(2024, 6, 21, 9, 0, 0, 0, time.UTC)),
		},
		{
			name:       "weekly crosses month",
			from:       time.Date(2024, 6, 28, 9, 0, 0, 0, time.UTC),
			recurrence: model.RecurWeekly,
			want:       ptr(time.Date(2024, 7, 5, 9, 0, 0, 0, time.UTC)),
		},
		{
			name:       "monthly",
			from:       time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
			recurrence: model.RecurMonthly,
			want:       ptr(time.Date(2024, 4, 15, 9, 0, 0, 0, time.UTC)),
		},
		{
			name:       "monthly clamps to leap day",
			from:       time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC),
			recurrence: model.RecurMonthly,
			want:       ptr(time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)),
		},
		{
			name:       "monthly across year end",
			from:       time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC),
			recurrence: model.RecurMonthly,
			want:       ptr(time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)),
		},
		{
			name:       "one-off",
			from:       time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC),
			recurrence: model.RecurNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextTrigger(tt.from, tt.recurrence)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v, want %v", *got, *tt.want)
		})
	}
}

func TestService_RunDue_OneOff(t *testing.T) {
	deliverer := &fakeDeliverer{}
	svc, store := newService(t, deliverer)
	ctx := context.Background()

	r, err := svc.Add(ctx, "Pay rent", "Transfer to landlord", now.Add(-time.Hour), model.RecurNone)
	require.NoError(t, err)

	result, err := svc.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Queued)
	assert.Equal(t, 1, result.Delivered)

	require.Len(t, deliverer.sent, 1)
	sent := deliverer.sent[0]
	assert.Equal(t, "Pay rent", sent.Title)
	assert.Equal(t, "Transfer to landlord", sent.Message)
	assert.Equal(t, model.AlertReminder, sent.Type)
	assert.Equal(t, model.CategoryReminder, sent.Category)
	assert.Equal(t, r.ID, sent.Subject)
	assert.Regexp(t, `^reminder-\d+$`, sent.ID)

	reminders, err := store.GetReminders(ctx)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.False(t, reminders[0].Active)

	result, err = svc.RunDue(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, result.Queued)
	assert.Len(t, deliverer.sent, 1, "a one-off reminder fires once")
}

func TestService_RunDue_NotDue(t *testing.T) {
	deliverer := &fakeDeliverer{}
	svc, _ := newService(t, deliverer)
	ctx := context.Background()

	_, err := svc.Add(ctx, "Later", "", now.Add(time.Minute), model.RecurDaily)
	require.NoError(t, err)

	result, err := svc.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, result.Queued)
	assert.Empty(t, deliverer.sent)
}

func TestService_RunDue_CatchesUpMissedOccurrences(t *testing.T) {
	deliverer := &fakeDeliverer{}
	svc, store := newService(t, deliverer)
	ctx := context.Background()

	first := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	_, err := svc.Add(ctx, "Weekly review", "", first, model.RecurWeekly)
	require.NoError(t, err)

	result, err := svc.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Queued, "June 1, 8 and 15")
	assert.Equal(t, 3, result.Delivered)
	assert.Equal(t, "Weekly review", deliverer.sent[0].Message, "title stands in for an empty message")

	reminders, err := store.GetReminders(ctx)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.True(t, reminders[0].Active)
	assert.True(t, reminders[0].NextTrigger.Equal(time.Date(2024, 6, 22, 9, 0, 0, 0, time.UTC)))
}

func TestService_RunDue_BoundsCatchUp(t *testing.T) {
	deliverer := &fakeDeliverer{}
	svc, store := newService(t, deliverer)
	ctx := context.Background()

	_, err := svc.Add(ctx, "Log expenses", "", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), model.RecurDaily)
	require.NoError(t, err)

	result, err := svc.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, maxCatchUp, result.Queued)

	reminders, err := store.GetReminders(ctx)
	require.NoError(t, err)
	assert.True(t, reminders[0].NextTrigger.Equal(time.Date(2024, 6, 21, 9, 0, 0, 0, time.UTC)),
		"skipped ahead to the first occurrence after now, got %v", reminders[0].NextTrigger)
}

func TestService_RunDue_RetriesFailedDispatch(t *testing.T) {
	deliverer := &fakeDeliverer{err: fmt.Errorf("%w: smtp down", common.ErrDispatchFailed)}
	svc, store := newService(t, deliverer)
	ctx := context.Background()

	_, err := svc.Add(ctx, "Pay card", "", now.Add(-time.Minute), model.RecurMonthly)
	require.NoError(t, err)

	result, err := svc.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Queued)
	assert.Equal(t, 1, result.Deferred)
	require.Len(t, result.Failures, 1)

	pending, err := store.PendingDeliveries(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// The occurrence was already queued and rescheduled, so the retry sends it
	// exactly once without queuing it again.
	deliverer.err = nil
	result, err = svc.RunDue(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, result.Queued)
	assert.Equal(t, 1, result.Delivered)
	assert.Len(t, deliverer.sent, 1)

	pending, err = store.PendingDeliveries(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestService_RunDue_SuppressionReasons(t *testing.T) {
	tests := []struct {
		name        string
		reason      string
		wantPending int
		deferred    int
		suppressed  int
	}{
		{name: "quiet hours defer", reason: alerts.ReasonQuietHours, wantPending: 1, deferred: 1},
		{name: "rate limit defers", reason: alerts.ReasonRateLimited, wantPending: 1, deferred: 1},
		{name: "duplicate settles", reason: alerts.ReasonDuplicate, suppressed: 1},
		{name: "opt-out settles", reason: alerts.ReasonCategoryDisabled, suppressed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t, &fakeDeliverer{reason: tt.reason})
			ctx := context.Background()

			_, err := svc.Add(ctx, "Check savings", "", now.Add(-time.Minute), model.RecurNone)
			require.NoError(t, err)

			result, err := svc.RunDue(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, tt.deferred, result.Deferred)
			assert.Equal(t, tt.suppressed, result.Suppressed)

			pending, err := store.PendingDeliveries(ctx)
			require.NoError(t, err)
			assert.Len(t, pending, tt.wantPending)
		})
	}
}

func TestService_Add_Invalid(t *testing.T) {
	svc, _ := newService(t, &fakeDeliverer{})

	_, err := svc.Add(context.Background(), "  ", "", now, model.RecurDaily)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Add(context.Background(), "Yearly", "", now, model.Recurrence("yearly"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestService_RunDue_ThroughAlertGates(t *testing.T) {
	db := testutil.SetupTestDB(t, nil, nil)
	kv := storage.NewMemoryKV()
	recorder := &notify.Recorder{}
	policy := config.DefaultPolicy()

	evaluator, err := alerts.NewEvaluator(alerts.Config{
		Rules:      alerts.NewRuleStore(kv),
		Gate:       alerts.NewGate(policy, model.DefaultPreferences()),
		Dispatcher: recorder,
		KV:         kv,
		Retry:      service.RetryOptions{MaxAttempts: 1},
		Policy:     policy,
	})
	require.NoError(t, err)

	svc := NewService(db.Storage, evaluator)
	ctx := context.Background()

	_, err = svc.Add(ctx, "Cancel trial", "Streaming trial ends tomorrow", now.Add(-time.Hour), model.RecurNone)
	require.NoError(t, err)

	result, err := svc.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)

	sent := recorder.Alerts()
	require.Len(t, sent, 1)
	assert.Equal(t, "Cancel trial", sent[0].Title)

	history, err := evaluator.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sent[0].ID, history[0].ID)
}

// flakyStore fails the first MarkDelivered call.
type flakyStore struct {
	*storage.SQLiteStorage
	failed bool
}

func (f *flakyStore) MarkDelivered(ctx context.Context, deliveryID int64, sentAt time.Time) error {
	if !f.failed {
		f.failed = true
		return fmt.Errorf("disk full")
	}
	return f.SQLiteStorage.MarkDelivered(ctx, deliveryID, sentAt)
}

func TestService_RunDue_SentButUnrecordedIsNotResent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, nil, nil)
	store := &flakyStore{SQLiteStorage: db.Storage}
	kv := storage.NewMemoryKV()
	recorder := &notify.Recorder{}
	policy := config.DefaultPolicy()

	// Each evaluator starts with an empty dedup window, like a fresh process.
	newEvaluator := func() *alerts.Evaluator {
		ev, err := alerts.NewEvaluator(alerts.Config{
			Rules:      alerts.NewRuleStore(kv),
			Gate:       alerts.NewGate(policy, model.DefaultPreferences()),
			Dispatcher: recorder,
			KV:         kv,
			Retry:      service.RetryOptions{MaxAttempts: 1},
			Policy:     policy,
		})
		require.NoError(t, err)
		return ev
	}

	first := NewService(store, newEvaluator())
	_, err := first.Add(ctx, "Pay rent", "", now.Add(-time.Hour), model.RecurNone)
	require.NoError(t, err)

	_, err = first.RunDue(ctx, now)
	require.Error(t, err)
	require.Len(t, recorder.Alerts(), 1)

	pending, err := db.Storage.PendingDeliveries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	second := NewService(store, newEvaluator())
	result, err := second.RunDue(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Delivered)
	assert.Len(t, recorder.Alerts(), 1, "reminder must not fire twice")

	pending, err = db.Storage.PendingDeliveries(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestService_Task(t *testing.T) {
	svc, _ := newService(t, &fakeDeliverer{})
	task := svc.Task(time.Minute)
	assert.Equal(t, "reminders", task.Name)
	assert.NoError(t, task.RunNow(context.Background()))
}

func ptr(t time.Time) *time.Time { return &t }
