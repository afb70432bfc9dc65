package storage

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spice-insights/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{
			name:      "valid string",
			str:       "test",
			paramName: "param",
			wantErr:   false,
		},
		{
			name:      "empty string",
			str:       "",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			str:       "   ",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "string with spaces",
			str:       "  test  ",
			paramName: "param",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.paramName) {
				t.Errorf("validateString() error should contain param name %s, got %v", tt.paramName, err)
			}
		})
	}
}

func TestValidateTransaction(t *testing.T) {
	validDate := time.Now()
	valid := func() *model.Transaction {
		return &model.Transaction{
			ID:       "txn123",
			Date:     validDate,
			Amount:   42.5,
			Category: "food",
			Type:     model.TypeExpense,
		}
	}
	tests := []struct {
		txn     *model.Transaction
		name    string
		errMsg  string
		wantErr bool
	}{
		{
			name:    "valid transaction",
			txn:     valid(),
			wantErr: false,
		},
		{
			name:    "nil transaction",
			txn:     nil,
			wantErr: true,
			errMsg:  "transaction",
		},
		{
			name:    "missing ID",
			txn:     func() *model.Transaction { txn := valid(); txn.ID = ""; return txn }(),
			wantErr: true,
			errMsg:  "missing ID",
		},
		{
			name:    "missing date",
			txn:     func() *model.Transaction { txn := valid(); txn.Date = time.Time{}; return txn }(),
			wantErr: true,
			errMsg:  "missing date",
		},
		{
			name:    "missing category",
			txn:     func() *model.Transaction { txn := valid(); txn.Category = ""; return txn }(),
			wantErr: true,
			errMsg:  "missing category",
		},
		{
			name:    "unknown type",
			txn:     func() *model.Transaction { txn := valid(); txn.Type = "refund"; return txn }(),
			wantErr: true,
			errMsg:  "unknown type",
		},
		{
			name:    "NaN amount",
			txn:     func() *model.Transaction { txn := valid(); txn.Amount = math.NaN(); return txn }(),
			wantErr: true,
			errMsg:  "amount",
		},
		{
			name:    "negative amount",
			txn:     func() *model.Transaction { txn := valid(); txn.Amount = -1; return txn }(),
			wantErr: true,
			errMsg:  "amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTransaction(tt.txn)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTransaction() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("validateTransaction() error should contain %s, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestValidateBudget(t *testing.T) {
	tests := []struct {
		budget  *model.Budget
		name    string
		errMsg  string
		wantErr bool
	}{
		{
			name:   "valid budget",
			budget: &model.Budget{Category: "food", Amount: 100, Period: model.PeriodMonthly},
		},
		{
			name:    "nil budget",
			wantErr: true,
			errMsg:  "budget",
		},
		{
			name:    "missing category",
			budget:  &model.Budget{Amount: 100, Period: model.PeriodMonthly},
			wantErr: true,
			errMsg:  "missing category",
		},
		{
			name:    "negative amount",
			budget:  &model.Budget{Category: "food", Amount: -5, Period: model.PeriodMonthly},
			wantErr: true,
			errMsg:  "non-negative",
		},
		{
			name:    "unknown period",
			budget:  &model.Budget{Category: "food", Amount: 5, Period: "daily"},
			wantErr: true,
			errMsg:  "unknown period",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBudget(tt.budget)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateBudget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("validateBudget() error should contain %s, got %v", tt.errMsg, err)
			}
		})
	}
}
