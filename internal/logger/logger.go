// internal/logger/logger.go
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unclebandit/crm-backend/internal/config"
)

// ZapLoggerConfig selects between zap's production and development presets
// and overrides the few knobs we expose through the environment.
type ZapLoggerConfig struct {
	IsDevelopment     bool
	Encoding          string
	Level             string
	DisableCaller     bool
	DisableStacktrace bool
}

// FromConfig maps the environment config onto a ZapLoggerConfig.
// Development runs always log to the console at debug level.
func FromConfig(cfg *config.Config) *ZapLoggerConfig {
	lc := &ZapLoggerConfig{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if lc.IsDevelopment {
		lc.Encoding = "console"
		lc.Level = "debug"
	}
	return lc
}

func NewZapLogger(cfg *ZapLoggerConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.IsDevelopment {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace

	return zc.Build()
}
