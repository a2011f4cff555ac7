package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"unknown": zapcore.InfoLevel,
	}

	for level, want := range cases {
		l, err := NewLogger(level, "json", "carezone")
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(want), "level %s", level)
		if want > zapcore.DebugLevel {
			assert.False(t, l.Core().Enabled(want-1), "level %s", level)
		}
	}
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	l, err := NewLogger("debug", "console", "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
