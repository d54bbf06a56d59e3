package balance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"copy-trade-bot-go/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrEmptyCredential is returned when connecting without a credential.
var ErrEmptyCredential = errors.New("wallet credential is empty")

// State is what the presentation layer shows. Values survive failed polls.
type State struct {
	Connected bool            `json:"connected"`
	Address   string          `json:"address,omitempty"`
	Native    decimal.Decimal `json:"native"`
	Stable    decimal.Decimal `json:"stable"`
	Symbol    string          `json:"symbol"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	LastError string          `json:"lastError,omitempty"`
}

// Poller refreshes balances for the connected credential on a fixed period.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	symbol   string
	logger   *zap.Logger

	mu         sync.RWMutex
	credential string
	state      State

	wake chan struct{}
}

// NewPoller creates a disconnected poller.
func NewPoller(fetcher Fetcher, interval time.Duration, symbol string, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		symbol:   symbol,
		logger:   logger,
		state:    State{Symbol: symbol},
		wake:     make(chan struct{}, 1),
	}
}

// Connect stores the credential and asks the running loop for an immediate
// refresh. The credential is kept even if it cannot be resolved; such polls
// fail quietly like any other.
func (p *Poller) Connect(credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrEmptyCredential
	}

	p.mu.Lock()
	p.credential = credential
	p.state = State{Connected: true, Symbol: p.symbol}
	if address, err := ResolveAddress(credential); err == nil {
		p.state.Address = address
	}
	p.mu.Unlock()

	p.logger.Info("Wallet connected")
	p.poke()
	return nil
}

// Disconnect clears the credential and the displayed balances.
func (p *Poller) Disconnect() {
	p.mu.Lock()
	p.credential = ""
	p.state = State{Symbol: p.symbol}
	p.mu.Unlock()
	p.logger.Info("Wallet disconnected")
}

// State returns the current display state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Poller) poke() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Refresh polls once. Errors are logged and recorded, never returned; the
// previous values stay in place.
func (p *Poller) Refresh(ctx context.Context) {
	p.mu.RLock()
	credential := p.credential
	p.mu.RUnlock()
	if credential == "" {
		return
	}

	snap, err := p.fetch(ctx, credential)

	p.mu.Lock()
	defer p.mu.Unlock()
	// The wallet may have been disconnected or swapped while we were reading.
	if p.credential != credential {
		return
	}
	if err != nil {
		metrics.BalancePollFailures.Inc()
		p.state.LastError = err.Error()
		p.logger.Warn("Balance refresh failed, keeping previous values", zap.Error(err))
		return
	}
	updated := snap.UpdatedAt
	p.state.Address = snap.Address
	p.state.Native = snap.Native
	p.state.Stable = snap.Stable
	p.state.UpdatedAt = &updated
	p.state.LastError = ""
	p.logger.Debug("Balances refreshed",
		zap.String("address", snap.Address),
		zap.String("native", snap.Native.StringFixed(4)),
		zap.String("stable", snap.Stable.StringFixed(2)),
	)
}

func (p *Poller) fetch(ctx context.Context, credential string) (Snapshot, error) {
	address, err := ResolveAddress(credential)
	if err != nil {
		return Snapshot{}, err
	}
	return p.fetcher.Fetch(ctx, address)
}

// Run polls every interval, and immediately after each Connect, until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting balance poller", zap.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Balance poller stopped")
			return nil
		case <-ticker.C:
			p.Refresh(ctx)
		case <-p.wake:
			p.Refresh(ctx)
			ticker.Reset(p.interval)
		}
	}
}
