package recommend

import (
	"context"

	"github.com/Veraticus/spice-insights/internal/model"
)

// SuggestSplit proposes sub-categories for category. It returns nil when fewer
// than two clusters are found.
func (e *Engine) SuggestSplit(category string, transactions []model.Transaction) *model.SplitSuggestion {
	suggestion, _ := e.SuggestSplitContext(context.Background(), category, transactions)
	return suggestion
}

// SuggestSplitContext is SuggestSplit with cancellation.
func (e *Engine) SuggestSplitContext(ctx context.Context, category string, transactions []model.Transaction) (*model.SplitSuggestion, error) {
	inCategory := model.FilterByCategory(transactions, category)

	clusters, err := e.clusters.ClusterContext(ctx, inCategory)
	if err != nil {
		return nil, err
	}
	if len(clusters) <= 1 {
		return nil, nil
	}

	clustered := 0
	for _, c := range clusters {
		clustered += len(c.Transactions)
	}
	return &model.SplitSuggestion{
		Category:    category,
		Clusters:    clusters,
		Unclustered: len(inCategory) - clustered,
	}, nil
}
