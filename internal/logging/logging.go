// Package logging provides cardforge's structured, category-scoped loggers.
//
// It plays the same role the teacher's internal/debug package does —
// cheap, category-tagged diagnostic output — but backs it with
// go.uber.org/zap instead of stdlib log.Printf so cache/fetch/loader events
// carry structured fields a log aggregator can index.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Categories mirror the teacher's debug.StorageOp/RuntimeReq/RuntimePool split.
const (
	CategoryFetch    = "fetch"
	CategoryCache    = "cache"
	CategoryCatalog  = "catalog"
	CategoryResolver = "resolver"
	CategoryLoader   = "loader"
	CategoryDecklist = "decklist"
)

// New builds a root logger. Debug mode enables debug-level output and a
// console encoder; otherwise a quieter JSON encoder at info level is used.
func New(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	encoding := "json"
	if debug || os.Getenv("CARDFORGE_DEBUG") == "1" {
		level = zapcore.DebugLevel
		encoding = "console"
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      debug,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Building the configured logger should never fail for this static
		// config; fall back to a no-op logger rather than panicking.
		return zap.NewNop()
	}
	return logger
}

// For returns a child logger scoped to the given category.
func For(base *zap.Logger, category string) *zap.Logger {
	return base.With(zap.String("category", category))
}
