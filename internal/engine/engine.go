// Package engine runs the copy-trading decision loop. While armed it
// periodically picks a followed trader's move, asks the decision oracle
// whether to mirror it, and records the outcome in the trade log and ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"copy-trade-bot-go/internal/catalog"
	"copy-trade-bot-go/internal/config"
	"copy-trade-bot-go/internal/ledger"
	"copy-trade-bot-go/internal/metrics"
	"copy-trade-bot-go/internal/models"
	"copy-trade-bot-go/internal/oracle"
	"copy-trade-bot-go/internal/registry"
	"copy-trade-bot-go/internal/trace"
	"copy-trade-bot-go/internal/tradelog"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNoFollowedTraders = errors.New("no followed traders")
	ErrInvalidRisk       = errors.New("risk per trade must be a non-negative number")
	ErrClosed            = errors.New("engine is closed")
)

// State is the arming state of the engine.
type State string

const (
	StateDisarmed State = "DISARMED"
	StateArmed    State = "ARMED"
)

const defaultTickInterval = 5 * time.Second

// Dependencies are the collaborators the engine drives.
type Dependencies struct {
	DB       *gorm.DB
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	TradeLog *tradelog.Log
	Catalog  *catalog.Catalog
	Oracle   oracle.Decider
	Moves    MoveSource
}

// Engine owns the arming state, the risk setting and the analyzing marker.
// Persistent state lives behind the registry, ledger and trade log.
type Engine struct {
	logger *zap.Logger
	cfg    *config.Engine
	deps   Dependencies

	baseCtx    context.Context
	baseCancel context.CancelFunc
	scheduler  *Scheduler
	events     *broker

	mu        sync.RWMutex
	state     State
	risk      float64
	analyzing string
	closed    bool

	// cycleMu keeps scheduled and manual cycles from interleaving.
	cycleMu sync.Mutex
}

// NewEngine creates a disarmed engine.
func NewEngine(logger *zap.Logger, cfg *config.Engine, deps Dependencies) (*Engine, error) {
	if err := validateRisk(cfg.RiskPerTrade); err != nil {
		return nil, err
	}
	if deps.Moves == nil {
		deps.Moves = NewRandomMoveSource()
	}
	if deps.Oracle == nil {
		deps.Oracle = oracle.NewFallbackDecider(nil, nil, logger)
	}

	interval := cfg.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		logger:     logger,
		cfg:        cfg,
		deps:       deps,
		baseCtx:    ctx,
		baseCancel: cancel,
		events:     newBroker(),
		state:      StateDisarmed,
		risk:       cfg.RiskPerTrade,
	}
	e.scheduler = NewScheduler(interval, e.scheduledCycle, logger)
	return e, nil
}

func validateRisk(risk float64) error {
	if math.IsNaN(risk) || math.IsInf(risk, 0) || risk < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRisk, risk)
	}
	return nil
}

// Run blocks until ctx is done, then tears the engine down.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Copy engine ready", zap.String("state", string(e.State())))
	<-ctx.Done()
	e.logger.Info("Stopping copy engine...")
	e.Close()
	return nil
}

// Close disarms, stops the timer and waits for an in-flight cycle.
// Subscriber channels are closed.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.state = StateDisarmed
	e.mu.Unlock()

	e.scheduler.Stop()
	e.baseCancel()
	e.scheduler.Wait()
	metrics.EngineArmed.Set(0)
	e.events.close()
}

// Arm starts the decision timer. It fails when nobody is followed.
//
// The state flips to ARMED before the follow set is read, so an Unfollow
// racing with Arm either sees ARMED and disarms, or has already emptied the
// set by the time Arm reads it.
func (e *Engine) Arm(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.state == StateArmed {
		e.mu.Unlock()
		return nil
	}
	e.state = StateArmed
	e.mu.Unlock()

	followed, err := e.deps.Registry.FollowedIDs(ctx)
	if err == nil && len(followed) == 0 {
		err = ErrNoFollowedTraders
	}
	if err != nil {
		e.mu.Lock()
		e.state = StateDisarmed
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	if e.state != StateArmed {
		// Disarmed while the follow set was being read.
		e.mu.Unlock()
		return nil
	}
	e.scheduler.Start(e.baseCtx)
	e.mu.Unlock()

	metrics.EngineArmed.Set(1)
	e.logger.Info("Engine armed", zap.Strings("followed", followed), zap.Float64("risk", e.Risk()))
	e.events.publish(EventArmed, nil)
	return nil
}

// Disarm stops scheduling cycles. A cycle already running completes normally.
func (e *Engine) Disarm() {
	e.mu.Lock()
	if e.state == StateDisarmed {
		e.mu.Unlock()
		return
	}
	e.state = StateDisarmed
	e.mu.Unlock()

	e.scheduler.Stop()
	metrics.EngineArmed.Set(0)
	e.logger.Info("Engine disarmed")
	e.events.publish(EventDisarmed, nil)
}

// State returns the arming state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Armed reports whether the engine is armed.
func (e *Engine) Armed() bool {
	return e.State() == StateArmed
}

// Risk returns the amount applied to every non-HOLD fill.
func (e *Engine) Risk() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.risk
}

// SetRisk changes the risk per trade. Negative or non-finite values are
// rejected and leave the setting unchanged.
func (e *Engine) SetRisk(risk float64) error {
	if err := validateRisk(risk); err != nil {
		return err
	}
	e.mu.Lock()
	e.risk = risk
	e.mu.Unlock()
	e.events.publish(EventRisk, risk)
	return nil
}

// Analyzing returns the market currently being analyzed, if any.
func (e *Engine) Analyzing() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.analyzing
}

func (e *Engine) setAnalyzing(marketID string) {
	e.mu.Lock()
	e.analyzing = marketID
	e.mu.Unlock()
	e.events.publish(EventAnalyzing, marketID)
}

// Subscribe returns a channel of engine events and a function that ends the
// subscription.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.events.subscribe()
}

// Follow adds a trader to the follow set. Unknown ids are a no-op.
func (e *Engine) Follow(ctx context.Context, traderID string) (bool, error) {
	changed, err := e.deps.Registry.Follow(ctx, traderID)
	if err != nil || !changed {
		return changed, err
	}
	return true, e.followChanged(ctx)
}

// Unfollow removes a trader from the follow set. Emptying the set disarms.
func (e *Engine) Unfollow(ctx context.Context, traderID string) (bool, error) {
	changed, err := e.deps.Registry.Unfollow(ctx, traderID)
	if err != nil || !changed {
		return changed, err
	}
	return true, e.followChanged(ctx)
}

// Toggle flips a trader's follow state and reports whether it is now followed.
func (e *Engine) Toggle(ctx context.Context, traderID string) (bool, error) {
	followed, err := e.deps.Registry.Toggle(ctx, traderID)
	if err != nil {
		return false, err
	}
	return followed, e.followChanged(ctx)
}

// AddCustomTrader registers and follows a user-supplied trader.
func (e *Engine) AddCustomTrader(ctx context.Context, name, address string) (models.TraderProfile, error) {
	trader, err := e.deps.Registry.AddCustomTrader(ctx, name, address)
	if err != nil {
		return models.TraderProfile{}, err
	}
	e.logger.Info("Custom trader added", zap.String("id", trader.ID), zap.String("name", trader.Name))
	e.events.publish(EventTrader, trader)
	return trader, e.followChanged(ctx)
}

func (e *Engine) followChanged(ctx context.Context) error {
	followed, err := e.deps.Registry.FollowedIDs(ctx)
	if err != nil {
		return err
	}
	e.events.publish(EventFollow, followed)
	if len(followed) == 0 && e.Armed() {
		e.logger.Info("Follow set is empty, disarming")
		e.Disarm()
	}
	return nil
}

func (e *Engine) scheduledCycle(ctx context.Context) {
	if !e.Armed() {
		return
	}
	if _, err := e.RunCycle(ctx); err != nil {
		e.logger.Error("Decision cycle failed", zap.Error(err))
	}
}

// CycleResult describes one decision cycle.
type CycleResult struct {
	// Skipped is set when nobody was followed and nothing was logged.
	Skipped  bool
	Entry    *models.TradeLogEntry
	Position *models.PortfolioPosition
}

// RunCycle runs one decision cycle: pick a move, consult the oracle, then
// append the log entry and apply the fill in one transaction. HOLD and
// failed fills leave the ledger untouched. An empty follow set skips the
// cycle and disarms.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	start := time.Now()
	ctx, span := trace.StartSpan(ctx, "decision-cycle")
	defer span.End()

	risk := e.Risk()

	followed, err := e.deps.Registry.FollowedTraders(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	if len(followed) == 0 {
		e.logger.Debug("No followed traders, skipping cycle")
		e.Disarm()
		return CycleResult{Skipped: true}, nil
	}

	move, err := e.deps.Moves.Next(followed, e.deps.Catalog.Markets())
	if err != nil {
		return CycleResult{}, fmt.Errorf("could not pick a move: %w", err)
	}
	trader, market := move.Trader, move.Market
	span.SetAttributes(
		attribute.String("trader.id", trader.ID),
		attribute.String("market.id", market.ID),
	)

	l := e.logger.With(
		zap.String("trader", trader.Name),
		zap.String("market", market.ID),
	)

	e.setAnalyzing(market.ID)
	defer e.setAnalyzing("")

	l.Debug("Analyzing move")
	entry := models.TradeLogEntry{
		MarketID:       market.ID,
		MarketQuestion: market.Question,
		CopiedTrader:   trader.Name,
		Amount:         risk,
		Status:         models.TradeStatusExecuted,
	}

	decision, err := e.deps.Oracle.Decide(ctx, market, &trader)
	if err != nil {
		// Only reachable with a decider that does not recover on its own.
		l.Warn("Decision oracle failed", zap.Error(err))
		decision = models.TradeDecision{Decision: models.DecisionHold, Reasoning: err.Error()}
		entry.Status = models.TradeStatusFailed
	}
	entry.Action = decision.Decision
	entry.Reasoning = truncate(decision.Reasoning, e.cfg.ReasoningMaxLen)
	entry.Price = market.PriceFor(decision.Decision)

	fill := ledger.Fill{
		MarketID: market.ID,
		Question: market.Question,
		Outcome:  decision.Decision.Outcome(),
		Price:    entry.Price,
		Amount:   risk,
		Trader:   trader.Name,
	}
	applyFill := entry.Status == models.TradeStatusExecuted && !decision.Decision.IsHold()
	if applyFill {
		if err := fill.Validate(); err != nil {
			l.Warn("Fill rejected, logging cycle as failed", zap.Error(err))
			entry.Status = models.TradeStatusFailed
			applyFill = false
		}
	}

	var pos *models.PortfolioPosition
	err = e.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tradelog.AppendTx(tx, &entry); err != nil {
			return err
		}
		if !applyFill {
			return nil
		}
		p, err := ledger.ApplyFillTx(tx, fill)
		if err != nil {
			return &fillError{err: err}
		}
		pos = &p
		return nil
	})
	var fillErr *fillError
	if errors.As(err, &fillErr) {
		// The rollback took the entry with it. Record the cycle as failed
		// without touching the ledger.
		l.Warn("Fill failed, logging cycle as failed", zap.Error(fillErr.err))
		entry.Seq = 0
		entry.Status = models.TradeStatusFailed
		err = e.deps.TradeLog.Append(ctx, &entry)
	}
	if err != nil {
		span.RecordError(err)
		return CycleResult{}, fmt.Errorf("could not commit decision cycle: %w", err)
	}

	metrics.CyclesTotal.WithLabelValues(string(entry.Action), string(entry.Status)).Inc()
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if pos != nil {
		metrics.FillsTotal.WithLabelValues(string(fill.Outcome)).Inc()
	}

	l.Info("Decision cycle complete",
		zap.String("action", string(entry.Action)),
		zap.String("status", string(entry.Status)),
		zap.Float64("price", entry.Price),
		zap.Float64("amount", entry.Amount),
	)
	e.events.publish(EventTrade, entry)

	return CycleResult{Entry: &entry, Position: pos}, nil
}

// fillError marks a ledger failure inside the commit transaction.
type fillError struct {
	err error
}

func (e *fillError) Error() string { return e.err.Error() }
func (e *fillError) Unwrap() error { return e.err }

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Snapshot is a point-in-time view of the engine for the presentation layer.
type Snapshot struct {
	State      State    `json:"state"`
	Risk       float64  `json:"riskPerTrade"`
	Analyzing  string   `json:"analyzing,omitempty"`
	Balance    float64  `json:"balance"`
	Followed   []string `json:"followed"`
	TradeCount int64    `json:"tradeCount"`
}

// Snapshot gathers the current engine state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	balance, err := e.deps.Ledger.Balance(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	followed, err := e.deps.Registry.FollowedIDs(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	count, err := e.deps.TradeLog.Len(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		State:      e.state,
		Risk:       e.risk,
		Analyzing:  e.analyzing,
		Balance:    balance,
		Followed:   followed,
		TradeCount: count,
	}, nil
}

// Traders returns every known profile, front of the registry first.
func (e *Engine) Traders(ctx context.Context) ([]models.TraderProfile, error) {
	return e.deps.Registry.Traders(ctx)
}

// FollowedIDs returns the follow set in the order it was built.
func (e *Engine) FollowedIDs(ctx context.Context) ([]string, error) {
	return e.deps.Registry.FollowedIDs(ctx)
}

// Markets returns the market catalog.
func (e *Engine) Markets() []models.Market {
	return e.deps.Catalog.Markets()
}

// Trades returns the last limit log entries, oldest first. limit <= 0 returns all.
func (e *Engine) Trades(ctx context.Context, limit int) ([]models.TradeLogEntry, error) {
	if limit <= 0 {
		return e.deps.TradeLog.List(ctx)
	}
	return e.deps.TradeLog.Recent(ctx, limit)
}

// Positions returns the open positions.
func (e *Engine) Positions(ctx context.Context) ([]models.PortfolioPosition, error) {
	return e.deps.Ledger.Positions(ctx)
}

// Balance returns the simulated cash balance.
func (e *Engine) Balance(ctx context.Context) (float64, error) {
	return e.deps.Ledger.Balance(ctx)
}
