package oracle

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"copy-trade-bot-go/internal/config"
	"copy-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockDecider is a mock implementation of the Decider interface.
type MockDecider struct {
	mock.Mock
}

func (m *MockDecider) Decide(ctx context.Context, market models.Market, trader *models.TraderProfile) (models.TradeDecision, error) {
	args := m.Called(ctx, market, trader)
	return args.Get(0).(models.TradeDecision), args.Error(1)
}

func newSimulated(seed int64) *SimulatedDecider {
	return NewSimulatedDeciderWithRand(rand.New(rand.NewSource(seed)))
}

func TestSimulatedDecider(t *testing.T) {
	s := newSimulated(7)

	for i := 0; i < 200; i++ {
		decision, err := s.Decide(context.Background(), testMarket, testTrader)
		require.NoError(t, err)
		assert.True(t, decision.Decision.Valid())
		assert.False(t, decision.Decision.IsHold())
		assert.True(t, strings.HasPrefix(decision.Reasoning, "(Simulated) "))
		assert.True(t, IsFallback(decision.Reasoning))
		assert.GreaterOrEqual(t, decision.Amount, 10.0)
		assert.LessOrEqual(t, decision.Amount, 59.0)
	}
}

func TestFallbackDecider_RemoteSuccess(t *testing.T) {
	remote := new(MockDecider)
	want := models.TradeDecision{Decision: models.DecisionCopySellNo, Reasoning: "Following the exit.", Amount: 12}
	remote.On("Decide", mock.Anything, testMarket, testTrader).Return(want, nil)

	f := NewFallbackDecider(remote, newSimulated(1), zap.NewNop())
	got, err := f.Decide(context.Background(), testMarket, testTrader)

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, IsFallback(got.Reasoning))
	remote.AssertExpectations(t)
}

func TestFallbackDecider_RemoteFailure(t *testing.T) {
	remote := new(MockDecider)
	remote.On("Decide", mock.Anything, testMarket, testTrader).Return(models.TradeDecision{}, errors.New("connection refused"))

	f := NewFallbackDecider(remote, newSimulated(1), zap.NewNop())

	for i := 0; i < 20; i++ {
		got, err := f.Decide(context.Background(), testMarket, testTrader)
		require.NoError(t, err)
		assert.True(t, got.Decision.Valid())
		assert.Equal(t, "Fallback: Analysis service temporarily unavailable.", got.Reasoning)
		assert.Equal(t, 25.0, got.Amount)
		assert.True(t, IsFallback(got.Reasoning))
	}
}

func TestFallbackDecider_InvalidRemoteDecision(t *testing.T) {
	remote := new(MockDecider)
	remote.On("Decide", mock.Anything, testMarket, testTrader).Return(models.TradeDecision{Decision: "YOLO"}, nil)

	f := NewFallbackDecider(remote, newSimulated(1), zap.NewNop())
	got, err := f.Decide(context.Background(), testMarket, testTrader)

	require.NoError(t, err)
	assert.True(t, got.Decision.Valid())
	assert.True(t, IsFallback(got.Reasoning))
}

func TestFallbackDecider_MissingKeyUsesSimulated(t *testing.T) {
	remote := new(MockDecider)
	remote.On("Decide", mock.Anything, testMarket, testTrader).Return(models.TradeDecision{}, ErrMissingAPIKey)

	f := NewFallbackDecider(remote, newSimulated(1), zap.NewNop())
	got, err := f.Decide(context.Background(), testMarket, testTrader)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.Reasoning, "(Simulated) "))
}

func TestNewDecider_NoKeyIsSimulated(t *testing.T) {
	f, err := NewDecider(&config.Oracle{}, 200, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, f.remote)

	got, err := f.Decide(context.Background(), testMarket, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.Reasoning, "(Simulated) "))
}

func TestNewRequest(t *testing.T) {
	req := NewRequest(testMarket, testTrader)
	assert.Equal(t, "GCR_Whale", req.TraderName)
	assert.Equal(t, "78", req.TraderWinRate)
	assert.Equal(t, 0.52, req.OddsYes)

	req = NewRequest(testMarket, nil)
	assert.Equal(t, "Unknown Whale", req.TraderName)
	assert.Equal(t, "Unknown", req.TraderWinRate)
}
