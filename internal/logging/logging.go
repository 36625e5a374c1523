package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/thediveo/enumflag/v2"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LevelIds maps log levels to their command line names.
var LevelIds = map[Level][]string{
	LevelDebug: {"debug"},
	LevelInfo:  {"info"},
	LevelWarn:  {"warn"},
	LevelError: {"error"},
}

type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var FormatIds = map[Format][]string{
	FormatText: {"text"},
	FormatJSON: {"json"},
}

// NewLevelFlag returns a pflag.Value for the level.
func NewLevelFlag(l *Level) *enumflag.EnumFlagValue[Level] {
	return enumflag.New(l, "level", LevelIds, enumflag.EnumCaseInsensitive)
}

// NewFormatFlag returns a pflag.Value for the format.
func NewFormatFlag(f *Format) *enumflag.EnumFlagValue[Format] {
	return enumflag.New(f, "format", FormatIds, enumflag.EnumCaseInsensitive)
}

type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to stderr
}

type Logger struct {
	log zerolog.Logger
}

func NewLogger(c Config) *Logger {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	if c.Format == FormatText {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	var lvl zerolog.Level
	switch c.Level {
	case LevelDebug:
		lvl = zerolog.DebugLevel
	case LevelInfo:
		lvl = zerolog.InfoLevel
	case LevelWarn:
		lvl = zerolog.WarnLevel
	default:
		lvl = zerolog.ErrorLevel
	}

	return &Logger{log: zerolog.New(out).Level(lvl).With().Timestamp().Logger()}
}

// NewNoOpLogger returns a logger that discards everything.
func NewNoOpLogger() *Logger {
	return &Logger{log: zerolog.Nop()}
}

// With returns a logger that adds the key/value pair to every message.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{log: l.log.With().Interface(key, value).Logger()}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.log.Debug().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.log.Info().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log.Warn().Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log.Error().Msg(fmt.Sprintf(format, args...))
}
