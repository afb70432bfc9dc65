package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/model"
)

// GetBudgets returns all budgets ordered by category.
func (s *SQLiteStorage) GetBudgets(ctx context.Context) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, amount, period
		FROM budgets
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		var (
			budget model.Budget
			period string
		)
		if err := rows.Scan(&budget.Category, &budget.Amount, &period); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budget.Period = model.BudgetPeriod(period)
		budgets = append(budgets, budget)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}

	slog.Debug("retrieved budgets", "count", len(budgets))
	return budgets, nil
}

// SaveBudget creates or replaces the budget for a category.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (category, amount, period, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(category) DO UPDATE SET
			amount = excluded.amount,
			period = excluded.period,
			updated_at = CURRENT_TIMESTAMP`,
		budget.Category, budget.Amount, string(budget.Period))
	if err != nil {
		return fmt.Errorf("failed to save budget for %s: %w", budget.Category, err)
	}
	return nil
}

// DeleteBudget removes the budget for a category.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM budgets WHERE category = ?", category)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("budget %s: %w", category, common.ErrNotFound)
	}
	return nil
}
