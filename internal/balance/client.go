// Package balance reports live on-chain balances for the connected wallet.
// It is read-only and independent of the copy engine.
package balance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"copy-trade-bot-go/internal/config"
	"copy-trade-bot-go/internal/restclient"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	nativeDecimals  = 18
	defaultDecimals = 6

	selectorBalanceOf = "0x70a08231"
	selectorDecimals  = "0x313ce567"
)

// ErrRPC is returned when the node answers with a JSON-RPC error object.
var ErrRPC = errors.New("rpc error")

// Snapshot is one successful balance read.
type Snapshot struct {
	Address   string          `json:"address"`
	Native    decimal.Decimal `json:"native"`
	Stable    decimal.Decimal `json:"stable"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Fetcher reads balances for an address.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (Snapshot, error)
}

// Client reads balances over JSON-RPC.
type Client struct {
	rpc    *restclient.Client
	tokens []string
	logger *zap.Logger
	nextID atomic.Int64
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a JSON-RPC balance client for the chain section of the config.
func NewClient(cfg *config.Chain, logger *zap.Logger) *Client {
	rpc := restclient.New(restclient.Options{
		BaseURL:        cfg.RPCURL,
		Timeout:        cfg.Timeout,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)
	return &Client{rpc: rpc, tokens: cfg.StableTokens, logger: logger}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// call performs one JSON-RPC call and returns the hex quantity it answered with.
func (c *Client) call(ctx context.Context, method string, params ...any) (*big.Int, error) {
	req := c.rpc.R(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})

	resp, err := c.rpc.Do(ctx, http.MethodPost, "", req)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", method, err)
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s returned invalid json", method)
	}
	if rpcErr := gjson.GetBytes(body, "error"); rpcErr.Exists() {
		return nil, fmt.Errorf("%w: %s: %s", ErrRPC, method, rpcErr.Get("message").String())
	}
	return parseQuantity(gjson.GetBytes(body, "result").String())
}

func parseQuantity(s string) (*big.Int, error) {
	digits := strings.TrimPrefix(s, "0x")
	if digits == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return n, nil
}

// Fetch reads the native balance and the sum of the stable token balances.
// A failed native read fails the whole fetch. A failed token read counts as
// zero, and a failed decimals read assumes 6.
func (c *Client) Fetch(ctx context.Context, address string) (Snapshot, error) {
	wei, err := c.call(ctx, "eth_getBalance", address, "latest")
	if err != nil {
		return Snapshot{}, err
	}

	amounts := make([]decimal.Decimal, len(c.tokens))
	g, gctx := errgroup.WithContext(ctx)
	for i, token := range c.tokens {
		g.Go(func() error {
			amounts[i] = c.tokenBalance(gctx, token, address)
			return nil
		})
	}
	_ = g.Wait()

	stable := decimal.Zero
	for _, amount := range amounts {
		stable = stable.Add(amount)
	}

	return Snapshot{
		Address:   address,
		Native:    decimal.NewFromBigInt(wei, -nativeDecimals),
		Stable:    stable,
		UpdatedAt: time.Now(),
	}, nil
}

func (c *Client) tokenBalance(ctx context.Context, token, address string) decimal.Decimal {
	callObj := func(data string) map[string]string {
		return map[string]string{"to": token, "data": data}
	}

	decimals := int32(defaultDecimals)
	if d, err := c.call(ctx, "eth_call", callObj(selectorDecimals), "latest"); err != nil {
		c.logger.Debug("Token decimals lookup failed, assuming default", zap.String("token", token), zap.Error(err))
	} else if d.IsInt64() && d.Int64() <= 255 {
		decimals = int32(d.Int64())
	}

	raw, err := c.call(ctx, "eth_call", callObj(balanceOfData(address)), "latest")
	if err != nil {
		c.logger.Debug("Token balance lookup failed, counting as zero", zap.String("token", token), zap.Error(err))
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// balanceOfData encodes balanceOf(address).
func balanceOfData(address string) string {
	addr := strings.ToLower(strings.TrimPrefix(address, "0x"))
	return selectorBalanceOf + strings.Repeat("0", 64-len(addr)) + addr
}
