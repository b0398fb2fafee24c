/*
Package logx is the relay's logging layer on top of zerolog.

Every line carries the service name. Long-lived parts of the relay (hub, registry,
journal) log through Component loggers; each socket logs through a Conn logger so
its frames, drops and disconnect can be followed by conn_id.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Service is the value of the "service" field on every log line.
const Service = "chat-relay"

// InitGlobalLogger installs the global logger. In development it logs at debug
// level to a console writer on stderr (frame-level traces included); otherwise it
// logs JSON at info level on stdout.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel

	if isDevelopment {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", Service).
		Caller().
		Logger()
}

// SetOutput redirects the global logger, keeping its level and fields. Tests use it
// to silence or capture output.
func SetOutput(w io.Writer) {
	log.Logger = log.Logger.Output(w)
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger for one part of the relay, such as "Hub".
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// Conn returns the logger for one socket connection.
func Conn(connID string) zerolog.Logger {
	return Logger().With().Str("component", "conn").Str("conn_id", connID).Logger()
}

func Debug(msg string, fields ...any) { write(Logger().Debug(), msg, fields) }

func Info(msg string, fields ...any) { write(Logger().Info(), msg, fields) }

func Warn(msg string, fields ...any) { write(Logger().Warn(), msg, fields) }

func Error(err error, msg string, fields ...any) { write(Logger().Error().Err(err), msg, fields) }

// Fatal logs at fatal level and exits the process with status 1.
func Fatal(err error, msg string, fields ...any) { write(Logger().Fatal().Err(err), msg, fields) }

// write attaches key/value fields and sends ev. A call site with an odd number of
// fields still logs msg, flagged with "fields_dropped".
func write(ev *zerolog.Event, msg string, fields []any) {
	if len(fields)%2 != 0 {
		ev = ev.Int("fields_dropped", len(fields))
		fields = nil
	}

	ev.Fields(fields).CallerSkipFrame(2).Msg(msg)
}
