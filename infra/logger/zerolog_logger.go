package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var defaultLevel atomic.Int32

func init() {
	defaultLevel.Store(int32(zerolog.InfoLevel))
}

// SetDefaultLevel sets the level used by loggers created without an explicit
// one. Level names follow zerolog (trace, debug, info, warn, error).
func SetDefaultLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	defaultLevel.Store(int32(lvl))
	return nil
}

// ParseLevel converts a level name into a zerolog level. Python style names
// such as WARNING and CRITICAL are accepted as aliases.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.Level(defaultLevel.Load()), nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "critical":
		return zerolog.FatalLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. Output is duplicated into the file opened
// with OpenFile, if any. All logs include the provided component field.
// Unknown levels fall back to the default level.
func NewZerologLogger(component, level string) Logger {
	var out io.Writer = os.Stdout
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if f := fileWriter(); f != nil {
		out = zerolog.MultiLevelWriter(out, f)
	}
	return newZerolog(out, component, level)
}

func newZerolog(out io.Writer, component, level string) *ZerologLogger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = zerolog.Level(defaultLevel.Load())
	}
	z := zerolog.New(out).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
