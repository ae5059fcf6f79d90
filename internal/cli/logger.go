package cli

import (
	"fmt"
	"io"

	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/logging"
)

// createLogger creates a logger based on configuration
func createLogger(cfg config.LoggingConfig, stderr io.Writer) (logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NewNullLogger(), nil
	}

	format := logging.FormatText
	if cfg.Format == "json" {
		format = logging.FormatJSON
	}
	level := logging.ParseLevel(cfg.Level)

	if cfg.File == "" {
		return logging.NewConsoleLogger(stderr, format, level), nil
	}

	logger, err := logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.File,
		Format:     format,
		Level:      level,
		MaxSize:    10 * 1024 * 1024, // 10 MB
		MaxBackups: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// ExitError carries a process exit code for a result that is not a match
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
