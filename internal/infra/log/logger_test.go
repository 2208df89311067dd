package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "console")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("warn", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestCronLoggerError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cronLogger := NewCronLogger(zap.New(core))

	cronLogger.Error(errors.New("boom"), "job panicked", "entry", 3)
	cronLogger.Info("skip", "reason", "still running")

	require.Equal(t, 2, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "boom", entry.ContextMap()["error"])
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
}
