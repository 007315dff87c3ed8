package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op until Init is called so
// packages can log from tests without setup.
var Log = zap.NewNop().Sugar()

// stderr receives held output on release.
var stderr io.Writer = os.Stderr

// Init configures Log to write human-readable lines to stderr at level.
// stdout is left for command output.
func Init(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel

	raw, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	Log = raw.Sugar()
	return nil
}

// Hold buffers log output until release is called, which restores the
// previous logger and writes the buffered lines to stderr. Full-screen
// output uses it so log lines do not tear its frames. Levels are kept.
//
// Hold and release swap Log, so no other goroutine may log across them.
func Hold() (release func()) {
	prev := Log
	var buf bytes.Buffer
	sink := zapcore.Lock(zapcore.AddSync(&buf))
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())

	Log = prev.Desugar().WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewCore(encoder, sink, c)
	})).Sugar()

	return func() {
		_ = Log.Sync()
		Log = prev
		_, _ = stderr.Write(buf.Bytes())
	}
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = Log.Sync()
}
