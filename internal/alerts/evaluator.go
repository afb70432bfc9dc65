package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/events"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/storage"
)

// HistoryKey is the KV key delivered alerts are stored under.
const HistoryKey = "alert_history"

// Config wires an Evaluator to its collaborators.
type Config struct {
	Rules      *RuleStore
	Gate       *Gate
	Dispatcher service.NotificationDispatcher
	KV         service.KVStore
	Bus        *events.Bus // Optional
	Retry      service.RetryOptions
	Policy     config.PolicyConfig
}

// Result summarizes one evaluation pass.
type Result struct {
	Delivered  []model.Alert
	Failures   []error // Rule and dispatch failures; the pass continues past them
	Suppressed int
}

// Evaluator turns rules into delivered alerts.
type Evaluator struct {
	dispatcher  service.NotificationDispatcher
	kv          service.KVStore
	rules       *RuleStore
	gate        *Gate
	bus         *events.Bus
	expressions *ExpressionEvaluator
	clock       func() time.Time
	cooldowns   map[string]time.Time
	history     []model.Alert
	retry       service.RetryOptions
	policy      config.PolicyConfig
	loaded      bool
	mu          sync.Mutex
}

// NewEvaluator creates an evaluator.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.Rules == nil || cfg.Gate == nil || cfg.Dispatcher == nil || cfg.KV == nil {
		return nil, fmt.Errorf("%w: evaluator requires rules, gate, dispatcher and kv", common.ErrMissingConfig)
	}
	expressions, err := NewExpressionEvaluator()
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		dispatcher:  cfg.Dispatcher,
		kv:          cfg.KV,
		rules:       cfg.Rules,
		gate:        cfg.Gate,
		bus:         cfg.Bus,
		expressions: expressions,
		clock:       time.Now,
		cooldowns:   make(map[string]time.Time),
		retry:       cfg.Retry,
		policy:      cfg.Policy,
	}, nil
}

// Expressions returns the evaluator used for custom rules, for validating
// expressions before they are saved.
func (ev *Evaluator) Expressions() *ExpressionEvaluator {
	return ev.expressions
}

// Evaluate runs every enabled rule against snap and delivers the resulting
// alerts. A failing rule is logged and skipped; it never aborts the pass.
func (ev *Evaluator) Evaluate(ctx context.Context, snap *Snapshot) (Result, error) {
	var result Result

	rules, err := ev.rules.Load(ctx)
	if err != nil {
		return result, err
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()

	if err := ev.loadHistory(ctx); err != nil {
		return result, err
	}

	now := ev.clock()
	if snap.Now.IsZero() {
		snap.Now = now
	}

	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		candidates, err := ev.safeCandidates(rule, snap)
		if err != nil {
			ruleErr := &common.RuleEvaluationError{RuleID: rule.ID, Err: err}
			slog.Error("Alert rule failed", "rule", rule.ID, "type", rule.Type, "error", err)
			ev.publish(events.Event{Type: events.RuleFailed, RuleID: rule.ID, Reason: err.Error()})
			result.Failures = append(result.Failures, ruleErr)
			continue
		}

		for _, alert := range candidates {
			key := rule.ID + "|" + alert.Subject
			if last, ok := ev.cooldowns[key]; ok && now.Sub(last) < rule.Frequency.Cooldown() {
				continue
			}

			alert.RuleID = rule.ID
			reason, err := ev.deliver(ctx, alert)
			if err != nil {
				result.Failures = append(result.Failures, err)
				continue
			}
			if reason != "" {
				result.Suppressed++
				continue
			}
			ev.cooldowns[key] = now
			result.Delivered = append(result.Delivered, ev.history[len(ev.history)-1])
		}
	}

	slog.Debug("Alert evaluation complete",
		"rules", len(rules),
		"delivered", len(result.Delivered),
		"suppressed", result.Suppressed,
		"failures", len(result.Failures))
	return result, nil
}

// Deliver sends one alert through the gates and the dispatcher. It reports
// whether the alert was delivered.
func (ev *Evaluator) Deliver(ctx context.Context, alert model.Alert) (bool, error) {
	reason, err := ev.Offer(ctx, alert)
	if err != nil {
		return false, err
	}
	return reason == "", nil
}

// Offer is Deliver for callers that act on the suppression reason. It returns
// "" when the alert was delivered.
func (ev *Evaluator) Offer(ctx context.Context, alert model.Alert) (string, error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if err := ev.loadHistory(ctx); err != nil {
		return "", err
	}
	return ev.deliver(ctx, alert)
}

// History returns delivered alerts, oldest first.
func (ev *Evaluator) History(ctx context.Context) ([]model.Alert, error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if err := ev.loadHistory(ctx); err != nil {
		return nil, err
	}
	return append([]model.Alert(nil), ev.history...), nil
}

// Delivered reports whether an alert with id is in the persisted history.
func (ev *Evaluator) Delivered(ctx context.Context, id string) (bool, error) {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if err := ev.loadHistory(ctx); err != nil {
		return false, err
	}
	for i := range ev.history {
		if ev.history[i].ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (ev *Evaluator) deliver(ctx context.Context, alert model.Alert) (string, error) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = ev.clock().UTC()
	}

	if reason := ev.gate.Check(&alert); reason != "" {
		slog.Debug("Alert suppressed", "title", alert.Title, "type", alert.Type, "reason", reason)
		ev.publish(events.Event{Type: events.AlertSuppressed, Alert: &alert, RuleID: alert.RuleID, Reason: reason})
		return reason, nil
	}

	err := common.WithRetry(ctx, func() error {
		err := ev.dispatcher.Dispatch(ctx, alert)
		if err != nil && ctx.Err() != nil {
			return common.Permanent(err)
		}
		return err
	}, ev.retry)
	if err != nil {
		slog.Error("Failed to dispatch alert", "title", alert.Title, "error", err)
		return "", fmt.Errorf("%w: %s: %w", common.ErrDispatchFailed, alert.Title, err)
	}

	ev.gate.Record(&alert)
	ev.history = append(ev.history, alert)
	if limit := ev.policy.HistoryLimit; limit > 0 && len(ev.history) > limit {
		ev.history = append([]model.Alert(nil), ev.history[len(ev.history)-limit:]...)
	}
	if err := storage.SetJSON(ctx, ev.kv, HistoryKey, ev.history); err != nil {
		// The alert already went out, so a persistence failure is only logged.
		slog.Warn("Failed to persist alert history", "error", err)
	}

	slog.Info("Alert dispatched", "title", alert.Title, "type", alert.Type, "priority", alert.Priority)
	ev.publish(events.Event{Type: events.AlertDispatched, Alert: &alert, RuleID: alert.RuleID})
	return "", nil
}

// safeCandidates converts a panicking predicate into an error.
func (ev *Evaluator) safeCandidates(rule *model.AlertRule, snap *Snapshot) (alerts []model.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alerts = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return ev.candidates(rule, snap)
}

func (ev *Evaluator) loadHistory(ctx context.Context) error {
	if ev.loaded {
		return nil
	}
	var history []model.Alert
	if _, err := storage.GetJSON(ctx, ev.kv, HistoryKey, &history); err != nil {
		return fmt.Errorf("failed to load alert history: %w", err)
	}
	ev.history = history
	ev.gate.Restore(history)
	ev.loaded = true
	return nil
}

func (ev *Evaluator) publish(e events.Event) {
	if ev.bus != nil {
		ev.bus.Publish(e)
	}
}

// IsRuleFailure reports whether err came from a failing rule rather than dispatch.
func IsRuleFailure(err error) bool {
	return errors.Is(err, common.ErrRuleEvaluation)
}
