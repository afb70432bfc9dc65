// Package cluster groups a category's transactions by description keyword or
// amount range to propose sub-categories.
package cluster

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
)

// Amount buckets.
const (
	BucketSmall  = "small"
	BucketMedium = "medium"
	BucketLarge  = "large"
)

// Engine finds clusters in a set of transactions.
type Engine struct {
	minSize  int
	smallMax float64
	largeMin float64
}

// NewEngine creates an engine from policy.
func NewEngine(policy config.PolicyConfig) *Engine {
	return &Engine{
		minSize:  policy.MinClusterSize,
		smallMax: policy.AmountSmallMax,
		largeMin: policy.AmountLargeMin,
	}
}

// Cluster groups transactions first by shared keyword, then by amount range.
// A transaction joins at most one cluster. Groups smaller than the minimum size
// are dropped.
func (e *Engine) Cluster(transactions []model.Transaction) []model.Cluster {
	clusters, _ := e.ClusterContext(context.Background(), transactions)
	return clusters
}

// ClusterContext is Cluster with cancellation checked between keywords.
func (e *Engine) ClusterContext(ctx context.Context, transactions []model.Transaction) ([]model.Cluster, error) {
	total := len(transactions)
	clusters := make([]model.Cluster, 0)
	if total == 0 {
		return clusters, nil
	}

	claimed := make([]bool, total)
	lowered := make([]string, total)
	descriptions := make([]string, total)
	for i, txn := range transactions {
		lowered[i] = strings.ToLower(txn.Description)
		descriptions[i] = txn.Description
	}

	for _, keyword := range Keywords(descriptions) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var members []int
		for i := range transactions {
			if !claimed[i] && strings.Contains(lowered[i], keyword) {
				members = append(members, i)
			}
		}
		if len(members) < e.minSize {
			continue
		}

		for _, i := range members {
			claimed[i] = true
		}
		clusters = append(clusters, e.build(
			"keyword:"+keyword, model.ClusterKeyword, titleCase(keyword), transactions, members, total))
	}

	buckets := map[string][]int{}
	for i, txn := range transactions {
		if claimed[i] {
			continue
		}
		bucket := e.bucketOf(math.Abs(txn.Amount))
		buckets[bucket] = append(buckets[bucket], i)
	}
	for _, bucket := range []string{BucketSmall, BucketMedium, BucketLarge} {
		members := buckets[bucket]
		if len(members) < e.minSize {
			continue
		}
		clusters = append(clusters, e.build(
			"amount:"+bucket, model.ClusterAmount, e.bucketName(bucket), transactions, members, total))
	}

	return clusters, nil
}

func (e *Engine) bucketOf(amount float64) string {
	switch {
	case amount < e.smallMax:
		return BucketSmall
	case amount > e.largeMin:
		return BucketLarge
	default:
		return BucketMedium
	}
}

func (e *Engine) bucketName(bucket string) string {
	switch bucket {
	case BucketSmall:
		return fmt.Sprintf("Small purchases (under %.0f)", e.smallMax)
	case BucketLarge:
		return fmt.Sprintf("Large purchases (over %.0f)", e.largeMin)
	default:
		return fmt.Sprintf("Medium purchases (%.0f to %.0f)", e.smallMax, e.largeMin)
	}
}

func (e *Engine) build(id string, kind model.ClusterKind, name string, transactions []model.Transaction, members []int, total int) model.Cluster {
	c := model.Cluster{
		Identifier:    id,
		Kind:          kind,
		SuggestedName: name,
		Transactions:  make([]model.Transaction, 0, len(members)),
		Confidence:    float64(len(members)) / float64(total),
	}
	for _, i := range members {
		c.Transactions = append(c.Transactions, transactions[i])
		c.TotalAmount += math.Abs(transactions[i].Amount)
	}
	c.AverageAmount = c.TotalAmount / float64(len(members))
	return c
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	r := []rune(word)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
