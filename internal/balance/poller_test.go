package balance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, address string) (Snapshot, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(Snapshot), args.Error(1)
}

func snapshot(native, stable string) Snapshot {
	return Snapshot{
		Address:   wallet,
		Native:    decimal.RequireFromString(native),
		Stable:    decimal.RequireFromString(stable),
		UpdatedAt: time.Now(),
	}
}

func TestPoller_ConnectRequiresCredential(t *testing.T) {
	p := NewPoller(new(MockFetcher), time.Minute, "MATIC", zap.NewNop())
	assert.ErrorIs(t, p.Connect("   "), ErrEmptyCredential)
	assert.False(t, p.State().Connected)
}

func TestPoller_RefreshKeepsStaleValuesOnFailure(t *testing.T) {
	fetcher := new(MockFetcher)
	p := NewPoller(fetcher, time.Minute, "MATIC", zap.NewNop())
	require.NoError(t, p.Connect(wallet))

	fetcher.On("Fetch", mock.Anything, wallet).Return(snapshot("1.25", "100"), nil).Once()
	p.Refresh(context.Background())

	state := p.State()
	assert.True(t, state.Connected)
	assert.Equal(t, "1.25", state.Native.String())
	assert.Equal(t, "100", state.Stable.String())
	require.NotNil(t, state.UpdatedAt)
	assert.Empty(t, state.LastError)

	fetcher.On("Fetch", mock.Anything, wallet).Return(Snapshot{}, errors.New("rpc down")).Once()
	p.Refresh(context.Background())

	state = p.State()
	assert.Equal(t, "1.25", state.Native.String())
	assert.Equal(t, "100", state.Stable.String())
	assert.Equal(t, "rpc down", state.LastError)
	fetcher.AssertExpectations(t)
}

func TestPoller_UnresolvableCredentialIsSwallowed(t *testing.T) {
	fetcher := new(MockFetcher)
	p := NewPoller(fetcher, time.Minute, "MATIC", zap.NewNop())
	require.NoError(t, p.Connect("not-a-key"))

	p.Refresh(context.Background())

	state := p.State()
	assert.True(t, state.Connected)
	assert.Empty(t, state.Address)
	assert.NotEmpty(t, state.LastError)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestPoller_Disconnect(t *testing.T) {
	fetcher := new(MockFetcher)
	p := NewPoller(fetcher, time.Minute, "MATIC", zap.NewNop())
	require.NoError(t, p.Connect(wallet))
	fetcher.On("Fetch", mock.Anything, wallet).Return(snapshot("3", "4"), nil).Once()
	p.Refresh(context.Background())

	p.Disconnect()
	state := p.State()
	assert.False(t, state.Connected)
	assert.True(t, state.Native.IsZero())
	assert.Nil(t, state.UpdatedAt)

	// No credential, no fetch.
	p.Refresh(context.Background())
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestPoller_RunFetchesOnConnect(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, wallet).Return(snapshot("0.5", "7"), nil)
	p := NewPoller(fetcher, time.Hour, "MATIC", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.NoError(t, p.Connect(wallet))
	assert.Eventually(t, func() bool {
		return p.State().UpdatedAt != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
