package logger

import (
	"testing"

	"furnistore/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "warn", Encoding: "json"}, false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	log, err := New(config.LoggerConfig{Level: "loud", Encoding: "console"}, true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
