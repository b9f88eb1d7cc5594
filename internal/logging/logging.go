// Package logging wraps zerolog for the worker process and adapts it to the
// logger interface the Temporal SDK expects for worker.Options.Logger.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the process-wide zerolog.Logger, writing structured JSON to
// stdout. levelStr follows the same debug/info/warn/error vocabulary the
// rest of the configuration table uses.
func New(levelStr string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(levelStr))
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func parseLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// TemporalAdapter satisfies go.temporal.io/sdk/log.Logger by forwarding to a
// zerolog.Logger. Temporal's worker and workflow code log key/value pairs as
// a flat variadic list, which this adapter folds into zerolog's fluent
// field-builder.
type TemporalAdapter struct {
	Logger zerolog.Logger
}

func (a TemporalAdapter) Debug(msg string, keyvals ...interface{}) {
	withFields(a.Logger.Debug(), keyvals).Msg(msg)
}

func (a TemporalAdapter) Info(msg string, keyvals ...interface{}) {
	withFields(a.Logger.Info(), keyvals).Msg(msg)
}

func (a TemporalAdapter) Warn(msg string, keyvals ...interface{}) {
	withFields(a.Logger.Warn(), keyvals).Msg(msg)
}

func (a TemporalAdapter) Error(msg string, keyvals ...interface{}) {
	withFields(a.Logger.Error(), keyvals).Msg(msg)
}

func withFields(e *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keyvals[i+1])
	}
	return e
}
