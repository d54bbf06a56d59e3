package logger

import (
	"testing"

	"copy-trade-bot-go/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       config.Logger
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "json debug", cfg: config.Logger{Level: "debug", Format: "json"}, wantLevel: zapcore.DebugLevel},
		{name: "console warn", cfg: config.Logger{Level: "warn", Format: "console"}, wantLevel: zapcore.WarnLevel},
		{name: "empty level defaults to info", cfg: config.Logger{}, wantLevel: zapcore.InfoLevel},
		{name: "unknown level", cfg: config.Logger{Level: "loud"}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			log, err := NewLogger(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, log.Core().Enabled(tc.wantLevel))
			assert.False(t, log.Core().Enabled(tc.wantLevel-1))
		})
	}
}
