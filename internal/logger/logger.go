// Package logger builds the process-wide zap logger.
package logger

import (
	"strings"

	"furnistore/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger from cfg. Unknown levels fall back to info and unknown
// encodings to json.
func New(cfg config.LoggerConfig, development bool) (*zap.Logger, error) {
	var zc zap.Config
	if development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	switch cfg.Encoding {
	case "console":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zc.Encoding = "json"
		zc.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace

	return zc.Build()
}
