// Package logging builds the process logger. Stdout carries the MCP
// protocol, so every log line goes to stderr.
package logging

import (
	"io"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger on stderr at info level, or debug level when
// debug is set.
func New(debug bool) *zap.SugaredLogger {
	return NewWithWriter(os.Stderr, debug)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core).Sugar().Named("localwp-mcp")
}

// StdLog adapts l for libraries that take a *log.Logger.
func StdLog(l *zap.SugaredLogger) *log.Logger {
	return zap.NewStdLog(l.Desugar())
}
