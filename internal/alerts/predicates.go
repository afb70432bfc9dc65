package alerts

import (
	"bytes"
	"fmt"
	"math"
	"text/template"

	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/recurring"
)

// candidates runs the predicate for rule's type and returns the alerts it
// would raise, before cooldowns and delivery gates.
func (ev *Evaluator) candidates(rule *model.AlertRule, snap *Snapshot) ([]model.Alert, error) {
	switch rule.Type {
	case model.RuleBudgetThreshold:
		return ev.budgetThreshold(rule, snap)
	case model.RuleAnomalyDetection:
		return anomalyDetection(rule, snap)
	case model.RuleRecurringTransaction:
		return recurringTransaction(rule, snap)
	case model.RuleCustom:
		return ev.custom(rule, snap)
	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.Type)
	}
}

func (ev *Evaluator) budgetThreshold(rule *model.AlertRule, snap *Snapshot) ([]model.Alert, error) {
	var out []model.Alert
	for _, p := range snap.Progress {
		if rule.Category != "" && p.Budget.Category != rule.Category {
			continue
		}
		if p.Budget.Amount <= 0 || p.Usage < rule.Threshold {
			continue
		}

		msg, err := render(rule, "You've used {{.Percent}}% of your {{.Category}} budget.", map[string]any{
			"Category":  p.Budget.Category,
			"Percent":   int(math.Round(p.Usage * 100)),
			"Spent":     fmt.Sprintf("%.2f", p.Spent),
			"Budget":    fmt.Sprintf("%.2f", p.Budget.Amount),
			"Remaining": fmt.Sprintf("%.2f", p.Remaining),
		})
		if err != nil {
			return nil, err
		}

		title := fmt.Sprintf("Budget Alert: %s", p.Budget.Category)
		if p.Usage >= ev.policy.BudgetTiers.Over {
			title = fmt.Sprintf("Budget Exceeded: %s", p.Budget.Category)
		}
		out = append(out, model.Alert{
			Type:     model.AlertBudgetWarning,
			Category: model.CategoryBudget,
			Title:    title,
			Message:  msg,
			Priority: ev.policy.BudgetTiers.PriorityFor(p.Usage),
			Subject:  p.Budget.Category,
			Data: map[string]any{
				"category": p.Budget.Category,
				"spent":    p.Spent,
				"budget":   p.Budget.Amount,
				"usage":    p.Usage,
			},
		})
	}
	return out, nil
}

func anomalyDetection(rule *model.AlertRule, snap *Snapshot) ([]model.Alert, error) {
	var out []model.Alert
	for _, a := range snap.Anomalies {
		txn := a.Transaction
		if rule.Category != "" && txn.Category != rule.Category {
			continue
		}
		if math.Abs(a.ZScore) < rule.Threshold {
			continue
		}

		msg, err := render(rule, "{{.Description}} for {{.Amount}} is unusual for {{.Category}}.", map[string]any{
			"Category":    txn.Category,
			"Description": txn.Description,
			"Amount":      fmt.Sprintf("%.2f", txn.Amount),
			"ZScore":      fmt.Sprintf("%.1f", a.ZScore),
		})
		if err != nil {
			return nil, err
		}

		priority := model.PriorityMedium
		if a.Severity == model.SeverityHigh {
			priority = model.PriorityHigh
		}
		out = append(out, model.Alert{
			Type:     model.AlertInsight,
			Category: model.CategoryInsight,
			Title:    fmt.Sprintf("Unusual spending in %s", txn.Category),
			Message:  msg,
			Priority: priority,
			Subject:  txn.ID,
			Data: map[string]any{
				"transaction_id": txn.ID,
				"z_score":        a.ZScore,
				"direction":      string(a.Direction),
			},
		})
	}
	return out, nil
}

func recurringTransaction(rule *model.AlertRule, snap *Snapshot) ([]model.Alert, error) {
	var out []model.Alert
	for _, s := range recurring.Overdue(snap.Recurring, snap.Now, int(math.Ceil(rule.Threshold))) {
		if rule.Category != "" && s.Category != rule.Category {
			continue
		}
		days := s.DaysOverdue(snap.Now)

		msg, err := render(rule, "{{.Description}} was expected {{.Days}} days ago.", map[string]any{
			"Description": s.Description,
			"Category":    s.Category,
			"Days":        days,
			"Amount":      fmt.Sprintf("%.2f", s.AverageAmount),
		})
		if err != nil {
			return nil, err
		}

		out = append(out, model.Alert{
			Type:     model.AlertReminder,
			Category: model.CategoryReminder,
			Title:    fmt.Sprintf("Expected payment missing: %s", s.Description),
			Message:  msg,
			Priority: severityOr(rule, model.PriorityMedium),
			Subject:  s.Key,
			Data: map[string]any{
				"series":       s.Key,
				"days_overdue": days,
				"frequency":    string(s.Frequency),
			},
		})
	}
	return out, nil
}

func (ev *Evaluator) custom(rule *model.AlertRule, snap *Snapshot) ([]model.Alert, error) {
	matched, err := ev.expressions.Eval(rule.Expression, snap.variables())
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, nil
	}

	msg, err := render(rule, "{{.Name}} matched.", map[string]any{
		"Name":  rule.Name,
		"Total": fmt.Sprintf("%.2f", snap.Summary.Total),
	})
	if err != nil {
		return nil, err
	}
	return []model.Alert{{
		Type:     model.AlertInsight,
		Category: model.CategoryAnalytics,
		Title:    rule.Name,
		Message:  msg,
		Priority: severityOr(rule, model.PriorityMedium),
		Subject:  rule.ID,
	}}, nil
}

func severityOr(rule *model.AlertRule, fallback model.Priority) model.Priority {
	if rule.Severity != "" {
		return rule.Severity
	}
	return fallback
}

// render fills the rule's message template, or fallback when it has none.
func render(rule *model.AlertRule, fallback string, data map[string]any) (string, error) {
	text := rule.MessageTemplate
	if text == "" {
		text = fallback
	}
	tmpl, err := template.New(rule.ID).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("invalid message template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render message: %w", err)
	}
	return buf.String(), nil
}
