package model

import (
	"fmt"
	"time"
)

// TemplateBudget is one category line of a budget template.
type TemplateBudget struct {
	Category string  `json:"category" toml:"category"`
	Amount   float64 `json:"amount" toml:"amount"`
}

// TemplateMetadata describes who a template is meant for.
type TemplateMetadata struct {
	TargetAudience string  `json:"target_audience" toml:"target_audience"`
	Difficulty     string  `json:"difficulty" toml:"difficulty"`
	CategoryCount  int     `json:"category_count" toml:"category_count"`
	TotalAmount    float64 `json:"total_amount" toml:"total_amount"`
}

// TemplateUsage tracks how a template has been received.
type TemplateUsage struct {
	TimesUsed int     `json:"times_used" toml:"times_used"`
	AvgRating float64 `json:"avg_rating" toml:"avg_rating"`
}

// BudgetTemplate is a reusable set of budgets created by users.
type BudgetTemplate struct {
	CreatedAt   time.Time        `json:"created_at" toml:"-"`
	ID          string           `json:"id" toml:"id"`
	Name        string           `json:"name" toml:"name"`
	Description string           `json:"description" toml:"description"`
	Budgets     []TemplateBudget `json:"budgets" toml:"budgets"`
	Metadata    TemplateMetadata `json:"metadata" toml:"metadata"`
	Usage       TemplateUsage    `json:"usage" toml:"usage"`
}

// Categories returns the set of categories the template budgets for.
func (t *BudgetTemplate) Categories() map[string]bool {
	set := make(map[string]bool, len(t.Budgets))
	for _, b := range t.Budgets {
		set[b.Category] = true
	}
	return set
}

// RefreshMetadata recomputes the derived totals from the budget lines.
func (t *BudgetTemplate) RefreshMetadata() {
	total := 0.0
	for _, b := range t.Budgets {
		total += b.Amount
	}
	t.Metadata.TotalAmount = total
	t.Metadata.CategoryCount = len(t.Categories())
}

// Validate ensures the template is usable.
func (t *BudgetTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template ID is required")
	}
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if len(t.Budgets) == 0 {
		return fmt.Errorf("template %q has no budgets", t.Name)
	}
	for i, b := range t.Budgets {
		if b.Category == "" {
			return fmt.Errorf("budget at index %d has no category", i)
		}
		if b.Amount < 0 {
			return fmt.Errorf("budget %q has negative amount %.2f", b.Category, b.Amount)
		}
	}
	if t.Usage.AvgRating < 0 || t.Usage.AvgRating > 5 {
		return fmt.Errorf("rating must be between 0 and 5, got %.2f", t.Usage.AvgRating)
	}
	return nil
}

// UserProfile summarizes the user for template matching.
type UserProfile struct {
	TopCategories []string `json:"top_categories"`
	TotalBudget   float64  `json:"total_budget"`
}
