// Package logging configures the zerolog logger shared by both services.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Logger is the process-wide logger. Init must run before any component
// logs; until then it defaults to a console writer at info level.
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// Init configures Logger from LOG_LEVEL/LOG_FORMAT and sets it as the
// global zerolog logger too, so library code using zlog.* picks it up.
func Init(service string) {
	InitWithWriter(service, os.Stdout)
}

func InitWithWriter(service string, w io.Writer) {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var base zerolog.Logger
	if os.Getenv("LOG_FORMAT") == "json" {
		base = zerolog.New(w).With().Timestamp().Logger()
	} else {
		base = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}

	Logger = base.Level(level).With().Str("service", service).Logger()
	zlog.Logger = Logger
}
