// Package alerts evaluates alert rules against the current spending state and
// decides which resulting alerts may reach the user.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/storage"
)

// RulesKey is the KV key alert rules are stored under.
const RulesKey = "alert_rules"

// DefaultRules are the rules a new user starts with.
func DefaultRules(now time.Time) []model.AlertRule {
	now = now.UTC()
	return []model.AlertRule{
		{
			ID:              "default-budget-80",
			Name:            "Budget 80% used",
			Type:            model.RuleBudgetThreshold,
			Threshold:       0.8,
			MessageTemplate: "You've used {{.Percent}}% of your {{.Category}} budget.",
			Frequency:       model.FrequencyDaily,
			Enabled:         true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			ID:              "default-anomaly",
			Name:            "Unusual transaction",
			Type:            model.RuleAnomalyDetection,
			Threshold:       2,
			MessageTemplate: "{{.Description}} for {{.Amount}} is unusual for {{.Category}}.",
			Frequency:       model.FrequencyRealtime,
			Enabled:         true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		{
			ID:              "default-recurring",
			Name:            "Missed recurring payment",
			Type:            model.RuleRecurringTransaction,
			Threshold:       3,
			MessageTemplate: "{{.Description}} was expected {{.Days}} days ago.",
			Severity:        model.PriorityMedium,
			Frequency:       model.FrequencyDaily,
			Enabled:         true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

// RuleStore persists alert rules.
type RuleStore struct {
	kv    service.KVStore
	clock func() time.Time
	mu    sync.Mutex
}

// NewRuleStore creates a rule store backed by kv.
func NewRuleStore(kv service.KVStore) *RuleStore {
	return &RuleStore{kv: kv, clock: time.Now}
}

// Load returns the stored rules, seeding the defaults the first time.
func (s *RuleStore) Load(ctx context.Context) ([]model.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// List is Load under the name the CLI uses.
func (s *RuleStore) List(ctx context.Context) ([]model.AlertRule, error) {
	return s.Load(ctx)
}

// Add stores a new rule, assigning an ID when it has none.
func (s *RuleStore) Add(ctx context.Context, rule *model.AlertRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := s.clock().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if r.ID == rule.ID {
			return fmt.Errorf("rule %s: %w", rule.ID, common.ErrDuplicateEntry)
		}
	}
	return s.store(ctx, append(rules, *rule))
}

// Update replaces an existing rule, keeping its creation time.
func (s *RuleStore) Update(ctx context.Context, rule *model.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range rules {
		if rules[i].ID == rule.ID {
			rule.CreatedAt = rules[i].CreatedAt
			rule.UpdatedAt = s.clock().UTC()
			rules[i] = *rule
			return s.store(ctx, rules)
		}
	}
	return fmt.Errorf("rule %s: %w", rule.ID, common.ErrNotFound)
}

// Remove deletes a rule.
func (s *RuleStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range rules {
		if rules[i].ID == id {
			return s.store(ctx, append(rules[:i], rules[i+1:]...))
		}
	}
	return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
}

// Export returns every rule as indented JSON.
func (s *RuleStore) Export(ctx context.Context) ([]byte, error) {
	rules, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(rules, "", "  ")
}

// Import replaces the stored rules with the JSON produced by Export.
func (s *RuleStore) Import(ctx context.Context, data []byte) (int, error) {
	var rules []model.AlertRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return 0, fmt.Errorf("%w: invalid rule export: %w", common.ErrInvalidInput, err)
	}
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return 0, fmt.Errorf("%w: rule at index %d: %w", common.ErrInvalidInput, i, err)
		}
		if seen[rules[i].ID] {
			return 0, common.InvalidInputf("duplicate rule %q", rules[i].ID)
		}
		seen[rules[i].ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store(ctx, rules); err != nil {
		return 0, err
	}
	return len(rules), nil
}

func (s *RuleStore) load(ctx context.Context) ([]model.AlertRule, error) {
	var rules []model.AlertRule
	found, err := storage.GetJSON(ctx, s.kv, RulesKey, &rules)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert rules: %w", err)
	}
	if !found {
		rules = DefaultRules(s.clock())
		if err := s.store(ctx, rules); err != nil {
			return nil, err
		}
	}
	if rules == nil {
		rules = []model.AlertRule{}
	}
	return rules, nil
}

func (s *RuleStore) store(ctx context.Context, rules []model.AlertRule) error {
	if err := storage.SetJSON(ctx, s.kv, RulesKey, rules); err != nil {
		return fmt.Errorf("failed to save alert rules: %w", err)
	}
	return nil
}
