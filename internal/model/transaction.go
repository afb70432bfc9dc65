// Package model defines the core data structures for the insights engine.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionType indicates whether money came in or went out.
type TransactionType string

const (
	// TypeIncome represents money received.
	TypeIncome TransactionType = "income"
	// TypeExpense represents money spent.
	TypeExpense TransactionType = "expense"
)

// IsValid reports whether the type is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction represents a single recorded transaction.
// Transactions are owned by the transaction store; the engine only reads them.
type Transaction struct {
	Date        time.Time       `json:"date"`
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	AccountID   string          `json:"account_id,omitempty"`
	Hash        string          `json:"hash,omitempty"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"` // Positive magnitude
}

// GenerateHash creates a unique hash for duplicate detection on import.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsExpense reports whether the transaction is spending.
func (t *Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// FilterByType returns the transactions of the given type, preserving order.
func FilterByType(transactions []Transaction, txnType TransactionType) []Transaction {
	result := make([]Transaction, 0, len(transactions))
	for _, txn := range transactions {
		if txn.Type == txnType {
			result = append(result, txn)
		}
	}
	return result
}

// FilterByCategory returns the transactions belonging to category, preserving order.
func FilterByCategory(transactions []Transaction, category string) []Transaction {
	result := make([]Transaction, 0)
	for _, txn := range transactions {
		if txn.Category == category {
			result = append(result, txn)
		}
	}
	return result
}
