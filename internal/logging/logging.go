package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger: a console writer on stderr plus a
// timestamped per-run log file under <outputDir>/logs. Returns the log
// file path so the caller can report it.
func Setup(outputDir string, verbose bool) (string, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	logDir := filepath.Join(outputDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", err
	}
	logPath := filepath.Join(logDir, fmt.Sprintf("images2video_%s.log", time.Now().Format("20060102_150405")))
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}

	multi := zerolog.MultiLevelWriter(console, f)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()

	log.Info().Str("file", logPath).Msg("logging initialized")
	return logPath, nil
}

// WithComponent returns a logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
