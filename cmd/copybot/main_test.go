package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"copy-trade-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	yml := `
engine:
  risk_per_trade: 10
  initial_balance: 100
oracle:
  api_key: ""
database:
  dsn: "file::memory:"
logger:
  level: error
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o644))
	return dir
}

func TestCycleCommand(t *testing.T) {
	t.Setenv("ORACLE_API_KEY", "")
	dir := writeConfig(t)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", dir, "cycle", "-n", "2"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines[:2] {
		var entry models.TradeLogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "GCR_Whale", entry.CopiedTrader)
		assert.Equal(t, models.TradeStatusExecuted, entry.Status)
		assert.Equal(t, 10.0, entry.Amount)
	}
	assert.Equal(t, "balance: 80.00", lines[2])
}

func TestCycleCommand_RejectsZeroCount(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", t.TempDir(), "cycle", "-n", "0"})
	assert.Error(t, cmd.Execute())
}

func TestBalanceCommand_RejectsGarbage(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t), "balance", "not-a-wallet"})
	assert.Error(t, cmd.Execute())
}
