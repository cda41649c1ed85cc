package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "tryon-api"

// NewLogger constructs the service logger. Production emits JSON with a
// service field so lines from the gateway can be filtered out of shared log
// streams; development switches to the console writer at debug level.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases zerolog.Logger so packages outside infra depend on a stable
// local name rather than importing the third-party module everywhere.
type Logger = zerolog.Logger
