// Package engine is the entry point UI code calls to analyze spending, forecast,
// suggest category splits and recommend budget templates.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/spice-insights/internal/cluster"
	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/events"
	"github.com/Veraticus/spice-insights/internal/forecast"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/recommend"
	"github.com/Veraticus/spice-insights/internal/recurring"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/stats"
)

// Kind identifies a family of requests. A newer request of a kind supersedes
// any older one still in flight.
type Kind string

// Request kinds.
const (
	KindAnalysis  Kind = "analysis"
	KindForecast  Kind = "forecast"
	KindSplit     Kind = "split"
	KindTemplates Kind = "templates"
)

var kinds = []Kind{KindAnalysis, KindForecast, KindSplit, KindTemplates}

// historyTimeframe is how much history Forecast and SuggestSplit load.
const historyTimeframe = model.TimeframeYear

// Result is the newest stored outcome of a request kind.
type Result struct {
	ComputedAt time.Time
	Value      any // *Analysis, model.Forecast, *model.SplitSuggestion or model.TemplateRankings
	Kind       Kind
	Token      uint64
}

// Config holds the engine's collaborators.
type Config struct {
	Transactions service.TransactionRepository
	Templates    *recommend.TemplateStore
	Bus          *events.Bus // Optional
	Policy       config.PolicyConfig
}

// Engine composes the analytic components. It only reads from its
// repositories and keeps the latest result of each request kind.
type Engine struct {
	transactions service.TransactionRepository
	templates    *recommend.TemplateStore
	bus          *events.Bus
	forecaster   *forecast.Forecaster
	recommender  *recommend.Engine
	detector     *stats.AnomalyDetector
	clock        func() time.Time
	beforeCommit func(Kind) // Test hook run between computing and storing a result
	tokens       map[Kind]*atomic.Uint64
	results      map[Kind]Result
	policy       config.PolicyConfig
	mu           sync.RWMutex
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Transactions == nil || cfg.Templates == nil {
		return nil, fmt.Errorf("%w: engine requires a transaction repository and template store", common.ErrMissingConfig)
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}

	forecaster := forecast.NewForecaster(cfg.Policy)
	tokens := make(map[Kind]*atomic.Uint64, len(kinds))
	for _, k := range kinds {
		tokens[k] = &atomic.Uint64{}
	}

	return &Engine{
		transactions: cfg.Transactions,
		templates:    cfg.Templates,
		bus:          cfg.Bus,
		forecaster:   forecaster,
		recommender:  recommend.NewEngine(cfg.Policy, forecaster, cluster.NewEngine(cfg.Policy)),
		detector:     stats.NewAnomalyDetector(cfg.Policy),
		clock:        time.Now,
		tokens:       tokens,
		results:      make(map[Kind]Result),
		policy:       cfg.Policy,
	}, nil
}

// Analyze summarizes the expenses in transactions over timeframe and checks
// them against budgets. Every budget is measured over the same timeframe
// window whatever its Period; use stats.ProgressByPeriod for progress within
// each budget's own period.
func (e *Engine) Analyze(ctx context.Context, transactions []model.Transaction, budgets []model.Budget, timeframe model.Timeframe) (*Analysis, error) {
	token := e.begin(KindAnalysis)

	if err := stats.Validate(transactions); err != nil {
		return nil, err
	}
	if err := checkBudgets(budgets); err != nil {
		return nil, err
	}

	now := e.clock()
	window := timeframe.Range(now)
	expenses := model.FilterByType(transactions, model.TypeExpense)
	scoped := stats.InWindow(expenses, window)

	summary, err := stats.AnalyzeContext(ctx, scoped, e.policy.ChunkSize)
	if err != nil {
		return nil, err
	}
	progress := stats.BudgetProgress(budgets, scoped, e.policy.BudgetTiers)
	anomalies := e.detector.Detect(scoped, summary)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis := &Analysis{
		GeneratedAt: now,
		Window:      window,
		Timeframe:   timeframe,
		Summary:     summary,
		Progress:    progress,
		AtRisk:      atRisk(progress),
		Anomalies:   anomalies,
		Suggestions: e.recommender.SuggestBudgets(summary, scoped, window),
		Recommendations: e.recommender.Recommendations(recommend.Input{
			Now:          now,
			Window:       window,
			Summary:      summary,
			Transactions: scoped,
			Budgets:      budgets,
			Anomalies:    anomalies,
		}),
		Forecast:  e.forecaster.Forecast(expenses, forecast.Options{Now: now}),
		Recurring: recurring.Detect(expenses),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.commit(KindAnalysis, token, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// Forecast predicts next month's spending for category, or for all spending
// when category is empty.
func (e *Engine) Forecast(ctx context.Context, category string) (model.Forecast, error) {
	token := e.begin(KindForecast)

	history, err := e.history(ctx, category)
	if err != nil {
		return model.Forecast{}, err
	}

	opts := forecast.Options{Now: e.clock()}
	if category != "" {
		opts.Category = &category
	}
	result := e.forecaster.Forecast(history, opts)

	if err := e.commit(KindForecast, token, result); err != nil {
		return model.Forecast{}, err
	}
	return result, nil
}

// SuggestSplit proposes sub-categories for category. A nil suggestion means
// the category has no meaningful split.
func (e *Engine) SuggestSplit(ctx context.Context, category string) (*model.SplitSuggestion, error) {
	token := e.begin(KindSplit)

	if category == "" {
		return nil, common.InvalidInputf("category is required")
	}
	history, err := e.history(ctx, category)
	if err != nil {
		return nil, err
	}

	suggestion, err := e.recommender.SuggestSplitContext(ctx, category, history)
	if err != nil {
		return nil, err
	}

	if err := e.commit(KindSplit, token, suggestion); err != nil {
		return nil, err
	}
	return suggestion, nil
}

// RecommendTemplates ranks the stored templates against profile.
func (e *Engine) RecommendTemplates(ctx context.Context, profile model.UserProfile) (model.TemplateRankings, error) {
	token := e.begin(KindTemplates)

	templates, err := e.templates.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rankings := e.recommender.ScoreTemplates(profile, templates)

	if err := e.commit(KindTemplates, token, rankings); err != nil {
		return nil, err
	}
	return rankings, nil
}

// Latest returns the newest stored result of kind.
func (e *Engine) Latest(kind Kind) (Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.results[kind]
	return r, ok
}

// Invalidate drops every stored result and supersedes requests in flight, so
// nothing computed from the previous data is kept.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, k := range kinds {
		e.tokens[k].Add(1)
	}
	clear(e.results)
	slog.Debug("Engine cache invalidated")
}

// Watch invalidates the cache whenever the bus reports a data change, until
// ctx is canceled.
func (e *Engine) Watch(ctx context.Context) {
	if e.bus == nil {
		return
	}
	sub := e.bus.Subscribe(16)
	defer e.bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Type == events.DataChanged {
				e.Invalidate()
			}
		}
	}
}

func (e *Engine) begin(kind Kind) uint64 {
	return e.tokens[kind].Add(1)
}

// commit stores value as the latest result of kind unless a newer request of
// the same kind has started since token was issued.
func (e *Engine) commit(kind Kind, token uint64, value any) error {
	if e.beforeCommit != nil {
		e.beforeCommit(kind)
	}

	e.mu.Lock()
	if e.tokens[kind].Load() != token {
		e.mu.Unlock()
		slog.Debug("Discarding superseded result", "kind", kind, "token", token)
		return fmt.Errorf("%s request %d: %w", kind, token, common.ErrSuperseded)
	}
	e.results[kind] = Result{
		ComputedAt: e.clock(),
		Value:      value,
		Kind:       kind,
		Token:      token,
	}
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.Publish(events.Event{Type: events.AnalysisCompleted, Kind: string(kind)})
	}
	return nil
}

func (e *Engine) history(ctx context.Context, category string) ([]model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	window := historyTimeframe.Range(e.clock())
	history, err := e.transactions.GetTransactions(ctx, service.TransactionFilter{
		StartDate: &window.Start,
		EndDate:   &window.End,
		Category:  category,
		Type:      model.TypeExpense,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return history, nil
}
