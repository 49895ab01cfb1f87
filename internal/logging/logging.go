// Package logging builds the service's zap logger.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Name is the root logger name.
const Name = "inyeon"

// ConsoleEncoderConfig is the compact layout used for terminal output.
func ConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "T"
	cfg.LevelKey = "L"
	cfg.NameKey = "N"
	cfg.CallerKey = "C"
	cfg.MessageKey = "M"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// New returns a logger writing to stderr. format is "console" or "json";
// debug lowers the level from info to debug.
func New(debug bool, format string) (*zap.Logger, error) {
	return NewWithSink(debug, format, zapcore.Lock(os.Stderr))
}

// NewWithSink is New with an explicit destination.
func NewWithSink(debug bool, format string, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "console":
		enc = zapcore.NewConsoleEncoder(ConsoleEncoderConfig())
	case "json":
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(jsonCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", format)
	}

	core := zapcore.NewCore(enc, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Named(Name), nil
}
