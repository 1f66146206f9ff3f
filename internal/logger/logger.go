package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TimeFormat is used for both JSON timestamps and console output.
const TimeFormat = "2006-01-02 15:04:05"

// New constructs a zerolog logger for the given environment and level.
// Output goes to the supplied writers, or stdout when none are given.
// Development environments render human readable console lines on the same
// target; everything else emits one JSON object per line.
func New(env, level string, writers ...io.Writer) (*zerolog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.TimeFieldFormat = TimeFormat
	zerolog.DurationFieldUnit = time.Millisecond

	var target io.Writer = os.Stdout
	switch len(writers) {
	case 0:
	case 1:
		target = writers[0]
	default:
		target = io.MultiWriter(writers...)
	}

	if isDevelopment(env) {
		target = zerolog.ConsoleWriter{Out: target, TimeFormat: TimeFormat, NoColor: target != os.Stdout}
	}

	logger := zerolog.New(target).With().Timestamp().Logger().Level(lvl)
	return &logger, nil
}

// Component returns a child logger tagged with the component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func isDevelopment(env string) bool {
	env = strings.TrimSpace(env)
	return strings.EqualFold(env, "development") || strings.EqualFold(env, "dev")
}

func parseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(level)
}
