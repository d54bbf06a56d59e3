package database

import (
	"testing"

	"copy-trade-bot-go/internal/catalog"
	"copy-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_FreshDatabase(t *testing.T) {
	db, err := NewDatabase("file::memory:")
	require.NoError(t, err)

	cat, err := catalog.Default()
	require.NoError(t, err)

	require.NoError(t, Seed(db, cat.Traders(), 1250, []string{"t1", "ghost"}))

	var traders int64
	require.NoError(t, db.Model(&models.TraderProfile{}).Count(&traders).Error)
	assert.Equal(t, int64(4), traders)

	var account models.Account
	require.NoError(t, db.First(&account, models.AccountID).Error)
	assert.Equal(t, 1250.0, account.Balance)

	// Unknown ids in the default follow list are ignored.
	var follows []models.Follow
	require.NoError(t, db.Find(&follows).Error)
	require.Len(t, follows, 1)
	assert.Equal(t, "t1", follows[0].TraderID)
}

func TestSeed_IsIdempotent(t *testing.T) {
	db, err := NewDatabase("file::memory:")
	require.NoError(t, err)
	cat, err := catalog.Default()
	require.NoError(t, err)

	require.NoError(t, Seed(db, cat.Traders(), 1250, []string{"t1"}))

	// Simulate activity, then restart.
	require.NoError(t, db.Model(&models.Account{}).Where("id = ?", models.AccountID).Update("balance", 900).Error)
	require.NoError(t, db.Where("trader_id = ?", "t1").Delete(&models.Follow{}).Error)

	require.NoError(t, Seed(db, cat.Traders(), 1250, []string{"t1"}))

	var account models.Account
	require.NoError(t, db.First(&account, models.AccountID).Error)
	assert.Equal(t, 900.0, account.Balance)

	var follows int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	assert.Zero(t, follows)
}
