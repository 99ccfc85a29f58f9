package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component names used for the "component" field on every log line
const (
	APP        = "APP"
	CHAT       = "CHAT"
	CONFIG     = "CONFIG"
	HANDLER    = "HANDLER"
	MIDDLEWARE = "MIDDLEWARE"
	OAUTH      = "OAUTH"
	REDIS      = "REDIS"
	SERVICE    = "SERVICE"
	SESSION    = "SESSION"
	TRANSCRIPT = "TRANSCRIPT"
	TRANSPORT  = "TRANSPORT"
	WEBSOCKET  = "WEBSOCKET"
)

func getLogLevel() zerolog.Level {
	level := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	switch level {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup configures the global zerolog logger to write to w.
// LOG_FORMAT=console switches to the human readable writer.
func Setup(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	zerolog.SetGlobalLevel(getLogLevel())
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// For returns a child of the global logger tagged with the given component
func For(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
