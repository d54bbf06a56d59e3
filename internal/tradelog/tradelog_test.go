package tradelog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"copy-trade-bot-go/internal/database"
	"copy-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) *Log {
	t.Helper()
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	return New(db)
}

func entry(marketID string, action models.Decision) *models.TradeLogEntry {
	return &models.TradeLogEntry{
		MarketID:       marketID,
		MarketQuestion: "Question " + marketID,
		Action:         action,
		CopiedTrader:   "GCR_Whale",
		Amount:         5,
		Price:          0.5,
		Status:         models.TradeStatusExecuted,
		Reasoning:      "test",
	}
}

func TestAppend_FillsIDAndTimestamp(t *testing.T) {
	l := setupTest(t)
	ctx := context.Background()

	e := entry("m1", models.DecisionCopyBuyYes)
	require.NoError(t, l.Append(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.NotZero(t, e.Seq)

	// Appending the same value again would rewrite history.
	assert.ErrorIs(t, l.Append(ctx, e), ErrAlreadyWritten)

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestList_CreationOrderAndImmutability(t *testing.T) {
	l := setupTest(t)
	ctx := context.Background()

	// Timestamps deliberately out of order: creation order wins.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := entry(fmt.Sprintf("m%d", i), models.DecisionHold)
		e.Timestamp = base.Add(time.Duration(5-i) * time.Minute)
		require.NoError(t, l.Append(ctx, e))
	}

	before, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, before, 5)
	for i, e := range before {
		assert.Equal(t, fmt.Sprintf("m%d", i), e.MarketID)
	}

	require.NoError(t, l.Append(ctx, entry("m9", models.DecisionCopyBuyNo)))

	after, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, after, 6)
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Action, after[i].Action)
		assert.Equal(t, before[i].Reasoning, after[i].Reasoning)
		assert.True(t, before[i].Timestamp.Equal(after[i].Timestamp))
	}
}

func TestRecent(t *testing.T) {
	l := setupTest(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, l.Append(ctx, entry(fmt.Sprintf("m%d", i), models.DecisionCopyBuyYes)))
	}

	recent, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "m2", recent[0].MarketID)
	assert.Equal(t, "m3", recent[1].MarketID)

	recent, err = l.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)

	recent, err = l.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
}
