// Package observability provides the process-wide structured logger used
// by every CLI command.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger, initialized by InitCLILogger before
// any command runs. It is a package-level var rather than a constructor
// return value because cobra command bodies reach for it directly, the way
// the teacher's command tree does.
var CLILogger *zap.Logger = zap.NewNop()

// InitCLILogger builds CLILogger for the given environment ("production",
// "test", or anything else treated as development) and debug flag. debug
// forces debug-level logging and a human-readable console encoder
// regardless of environment.
func InitCLILogger(env string, debug bool) {
	var cfg zap.Config
	switch env {
	case "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
	}
	if env == "test" {
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	logger, err := cfg.Build()
	if err != nil {
		CLILogger = zap.NewNop()
		return
	}
	CLILogger = logger
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	_ = CLILogger.Sync()
}
