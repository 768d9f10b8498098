package lightio

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is the structured logging sink consulted by the scheduler for
// tick-loop diagnostics, fiber lifecycle transitions, and unjoined fiber
// errors. Callers wire in whatever logging framework the host service
// already uses; SetLogger replaces the package default.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

var globalLogger struct {
	sync.RWMutex
	logger Logger
}

func init() {
	globalLogger.logger = newZerologLogger()
}

// SetLogger replaces the package-wide logging sink. It is safe to call
// concurrently with a running scheduler.
func SetLogger(l Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	if l == nil {
		l = noopLogger{}
	}
	globalLogger.logger = l
}

func currentLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	return globalLogger.logger
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// zerologLogger is the default Logger, backed by a console-writer
// zerolog.Logger so standalone binaries (cmd/lightio-demo) get readable
// output without any caller configuration.
type zerologLogger struct {
	log zerolog.Logger
}

func newZerologLogger() *zerologLogger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	return &zerologLogger{log: zerolog.New(writer).With().Timestamp().Logger()}
}

func (z *zerologLogger) event(ev *zerolog.Event, msg string, fields map[string]any) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (z *zerologLogger) Debug(msg string, fields map[string]any) {
	z.event(z.log.Debug(), msg, fields)
}

func (z *zerologLogger) Warn(msg string, fields map[string]any) {
	z.event(z.log.Warn(), msg, fields)
}

func (z *zerologLogger) Error(msg string, fields map[string]any) {
	z.event(z.log.Error(), msg, fields)
}

func logDebug(msg string, fields map[string]any) { currentLogger().Debug(msg, fields) }
func logWarn(msg string, fields map[string]any)  { currentLogger().Warn(msg, fields) }
func logError(msg string, fields map[string]any) { currentLogger().Error(msg, fields) }
