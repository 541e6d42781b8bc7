// Package logging builds the application's zap logger
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production logger for mode "release" or "production", a
// no-op logger for "quiet" and a colored development logger otherwise
func New(mode string) (*zap.Logger, error) {
	var config zap.Config

	switch mode {
	case "quiet":
		return zap.NewNop(), nil
	case "release", "production":
		config = zap.NewProductionConfig()
	default:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return config.Build()
}

// Sync flushes logger, ignoring the error stderr gives on some platforms
func Sync(logger *zap.Logger) {
	if logger != nil {
		_ = logger.Sync()
	}
}
