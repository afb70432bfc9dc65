// Package testutil provides test helpers for building seeded insight databases.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/storage"
)

// TestDB is a migrated in-memory database closed when the test ends.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates an in-memory database seeded with transactions and budgets.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.Expenses("food", now, 120, 80, 95),
//		[]model.Budget{{Category: "food", Amount: 300, Period: model.PeriodMonthly}},
//	)
func SetupTestDB(t *testing.T, transactions []model.Transaction, budgets []model.Budget) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t}
	db.AddTransactions(transactions...)
	for i := range budgets {
		if err := store.SaveBudget(ctx, &budgets[i]); err != nil {
			t.Fatalf("failed to seed budget %q: %v", budgets[i].Category, err)
		}
	}
	return db
}

// AddTransactions stores more transactions or fails the test.
func (db *TestDB) AddTransactions(transactions ...model.Transaction) {
	db.t.Helper()
	if len(transactions) == 0 {
		return
	}
	if _, err := db.Storage.SaveTransactions(context.Background(), transactions); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
}

// Expenses builds one expense per amount in category, a day apart, ending at end.
func Expenses(category string, end time.Time, amounts ...float64) []model.Transaction {
	txns := make([]model.Transaction, len(amounts))
	for i, amount := range amounts {
		txns[i] = model.Transaction{
			ID:          fmt.Sprintf("%s-%03d", category, i+1),
			Date:        end.AddDate(0, 0, i-len(amounts)+1).UTC(),
			Amount:      amount,
			Type:        model.TypeExpense,
			Category:    category,
			Description: fmt.Sprintf("%s purchase %d", category, i+1),
			AccountID:   "test",
		}
		txns[i].Hash = txns[i].GenerateHash()
	}
	return txns
}
