package entrypoint

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrlokans/library/internal/config"
)

// NewLogger builds the structured logger used by the domain and background
// components. "console" selects a human-readable development encoder.
func NewLogger(cfg config.Log) (*zap.Logger, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
