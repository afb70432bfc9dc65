package cluster

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
)

func txn(id, description string, amount float64) model.Transaction {
	return model.Transaction{
		ID:          id,
		Description: description,
		Amount:      amount,
		Type:        model.TypeExpense,
		Category:    "food",
	}
}

func TestEngine_CafeExample(t *testing.T) {
	txns := []model.Transaction{
		txn("1", "Corner Cafe", 4500),
		txn("2", "CAFE LUNA", 6200),
		txn("3", "Morning cafe latte", 3900),
		txn("4", "Blue Cafe", 5100),
		txn("5", "Grocery Mart", 12000),
		txn("6", "Pizza Palace", 80000),
		txn("7", "Sushi Bar", 250000),
		txn("8", "Bakery", 30000),
		txn("9", "Steakhouse", 190000),
		txn("10", "Wine Cellar", 300000),
	}

	clusters := NewEngine(config.DefaultPolicy()).Cluster(txns)

	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.Equal(t, "keyword:cafe", c.Identifier)
	assert.Equal(t, model.ClusterKeyword, c.Kind)
	assert.Equal(t, "Cafe", c.SuggestedName)
	assert.Len(t, c.Transactions, 4)
	assert.InDelta(t, 0.4, c.Confidence, 1e-9)
	assert.InDelta(t, 19700.0, c.TotalAmount, 1e-9)
	assert.InDelta(t, 4925.0, c.AverageAmount, 1e-9)
}

func TestEngine_AmountPass(t *testing.T) {
	txns := []model.Transaction{
		txn("1", "Alpha", 100),
		txn("2", "Bravo", 200),
		txn("3", "Charlie", 300),
		txn("4", "Delta", 50000),
		txn("5", "Echo", 200000),
		txn("6", "Foxtrot", 120000),
		txn("7", "Golf", 500000),
	}

	clusters := NewEngine(config.DefaultPolicy()).Cluster(txns)

	require.Len(t, clusters, 2)
	assert.Equal(t, "amount:small", clusters[0].Identifier)
	assert.Len(t, clusters[0].Transactions, 3)
	// 50,000 and 200,000 are both medium
	assert.Equal(t, "amount:medium", clusters[1].Identifier)
	assert.Len(t, clusters[1].Transactions, 3)
	assert.Equal(t, model.ClusterAmount, clusters[1].Kind)
}

func TestEngine_TransactionsClaimedOnce(t *testing.T) {
	txns := []model.Transaction{
		txn("1", "Uber trip airport", 10),
		txn("2", "Uber trip downtown", 10),
		txn("3", "Uber trip home", 10),
		txn("4", "Lyft trip", 10),
		txn("5", "Lyft trip", 10),
	}

	clusters := NewEngine(config.DefaultPolicy()).Cluster(txns)

	// "trip" appears in 5 descriptions so it claims everything before "uber"
	require.Len(t, clusters, 1)
	assert.Equal(t, "keyword:trip", clusters[0].Identifier)
	assert.Len(t, clusters[0].Transactions, 5)

	seen := map[string]int{}
	for _, c := range clusters {
		for _, tx := range c.Transactions {
			seen[tx.ID]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "transaction %s in more than one cluster", id)
	}
}

func TestEngine_NeverBelowMinimum(t *testing.T) {
	engine := NewEngine(config.DefaultPolicy())
	for n := 0; n < 12; n++ {
		txns := make([]model.Transaction, n)
		for i := range txns {
			txns[i] = txn(fmt.Sprint(i), fmt.Sprintf("shop%d item", i%4), float64(i*37000))
		}
		for _, c := range engine.Cluster(txns) {
			assert.GreaterOrEqual(t, len(c.Transactions), 3)
		}
	}
}

func TestEngine_Empty(t *testing.T) {
	clusters := NewEngine(config.DefaultPolicy()).Cluster(nil)
	assert.NotNil(t, clusters)
	assert.Empty(t, clusters)
}

func TestEngine_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(config.DefaultPolicy()).ClusterContext(ctx, []model.Transaction{txn("1", "coffee", 1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeywords(t *testing.T) {
	got := Keywords([]string{
		"POS Purchase Cafe Luna 1234",
		"Cafe Luna",
		"The Cafe",
		"Go",
	})
	assert.Equal(t, []string{"cafe", "luna"}, got)
}
