package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/spice-insights/internal/alerts"
	"github.com/Veraticus/spice-insights/internal/common"
	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/engine"
	"github.com/Veraticus/spice-insights/internal/events"
	"github.com/Veraticus/spice-insights/internal/notify"
	"github.com/Veraticus/spice-insights/internal/recommend"
	"github.com/Veraticus/spice-insights/internal/reminder"
	"github.com/Veraticus/spice-insights/internal/service"
	"github.com/Veraticus/spice-insights/internal/storage"
)

// app is the composition root: every service is built once here and handed
// to the commands that need it.
type app struct {
	store     *storage.SQLiteStorage
	kv        service.KVStore
	bus       *events.Bus
	templates *recommend.TemplateStore
	rules     *alerts.RuleStore
	evaluator *alerts.Evaluator
	engine    *engine.Engine
	reminders *reminder.Service
	closers   []func() error
	policy    config.PolicyConfig
}

func openApp(ctx context.Context) (*app, error) {
	policy, err := config.LoadPolicy()
	if err != nil {
		return nil, err
	}
	prefs, err := config.LoadPreferences()
	if err != nil {
		return nil, err
	}
	storageCfg := config.LoadStorageConfig()

	store, err := storage.NewSQLiteStorage(storageCfg.DatabasePath)
	if err != nil {
		return nil, common.NewUserError("Could not open the database at "+storageCfg.DatabasePath, err)
	}
	a := &app{
		store:   store,
		kv:      store,
		bus:     events.NewBus(),
		policy:  policy,
		closers: []func() error{store.Close},
	}
	if err := store.Migrate(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if storageCfg.RedisURL != "" {
		redisKV, err := storage.NewRedisKV(storageCfg.RedisURL, storageCfg.RedisPrefix)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, redisKV.Close)
		if err := redisKV.Ping(ctx); err != nil {
			_ = a.Close()
			return nil, common.NewUserError("Could not reach redis at "+storageCfg.RedisURL, err)
		}
		a.kv = redisKV
		slog.Debug("Using redis for rules, templates and alert history", "prefix", storageCfg.RedisPrefix)
	}

	a.templates = recommend.NewTemplateStore(a.kv)
	a.rules = alerts.NewRuleStore(a.kv)

	a.evaluator, err = alerts.NewEvaluator(alerts.Config{
		Rules: a.rules,
		Gate:  alerts.NewGate(policy, prefs),
		Dispatcher: notify.Multi{
			notify.NewConsoleDispatcher(os.Stdout),
			notify.NewLogDispatcher(nil),
		},
		KV:     a.kv,
		Bus:    a.bus,
		Retry:  service.RetryOptions{MaxAttempts: 3},
		Policy: policy,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.engine, err = engine.New(engine.Config{
		Transactions: store,
		Templates:    a.templates,
		Bus:          a.bus,
		Policy:       policy,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.reminders = reminder.NewService(store, a.evaluator)
	return a, nil
}

// Close releases every backend, returning the first error.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("Failed to close storage", "error", err)
		}
	}()
	return fn(a)
}
