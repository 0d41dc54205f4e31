// Package logger builds the zerolog loggers used across the service. All
// components log through a zerolog.Logger value passed in at construction;
// this package only decides the output format and level.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a structured console logger. The level comes from LOG_LEVEL
// (trace, debug, info, warn, error), defaulting to info.
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).
		Level(levelFromEnv()).
		With().Timestamp().Caller().Logger()
}

func levelFromEnv() zerolog.Level {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
