package main

import (
	"context"
	"fmt"

	"copy-trade-bot-go/internal/catalog"
	"copy-trade-bot-go/internal/config"
	"copy-trade-bot-go/internal/database"
	"copy-trade-bot-go/internal/engine"
	"copy-trade-bot-go/internal/ledger"
	"copy-trade-bot-go/internal/logger"
	"copy-trade-bot-go/internal/oracle"
	"copy-trade-bot-go/internal/registry"
	"copy-trade-bot-go/internal/trace"
	"copy-trade-bot-go/internal/tradelog"

	"go.uber.org/zap"
)

// app holds what every subcommand needs: the config and the logger.
type app struct {
	cfg config.Config
	log *zap.Logger
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := config.LoadConfig(opts.configDir)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}
	log.Info("Configuration loaded")

	if err := trace.Init(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("could not init tracing: %w", err)
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) close() {
	if err := trace.Shutdown(context.Background()); err != nil {
		a.log.Warn("Failed to flush traces", zap.Error(err))
	}
	_ = a.log.Sync()
}

// newEngine opens the database, seeds it from the catalog and builds a
// disarmed copy engine on top.
func (a *app) newEngine() (*engine.Engine, error) {
	cat, err := catalog.Load(a.cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("could not load catalog: %w", err)
	}

	db, err := database.NewDatabase(a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := database.Seed(db, cat.Traders(), a.cfg.Engine.InitialBalance, a.cfg.Engine.DefaultFollows); err != nil {
		return nil, fmt.Errorf("could not seed database: %w", err)
	}
	a.log.Info("Database ready", zap.String("dsn", a.cfg.Database.DSN))

	decider, err := oracle.NewDecider(&a.cfg.Oracle, a.cfg.Engine.ReasoningMaxLen, a.log)
	if err != nil {
		return nil, fmt.Errorf("could not create decision oracle: %w", err)
	}

	return engine.NewEngine(a.log.Named("engine"), &a.cfg.Engine, engine.Dependencies{
		DB:       db,
		Registry: registry.New(db),
		Ledger:   ledger.New(db),
		TradeLog: tradelog.New(db),
		Catalog:  cat,
		Oracle:   decider,
	})
}
