package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/discard"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/level"
	"github.com/apex/log/handlers/multi"
)

// Config controls where log entries go.
type Config struct {
	// File receives every entry as one JSON object per line. Empty
	// disables the file sink.
	File string

	// Verbose lowers the console threshold from ERROR to DEBUG.
	Verbose bool

	// Quiet drops console output entirely. The file sink, when
	// configured, still receives all entries.
	Quiet bool
}

// Setup builds the root logger. The returned closer owns the log file and
// must be closed once the process is done logging.
func Setup(cfg Config) (log.Interface, io.Closer, error) {
	handlers := make([]log.Handler, 0, 2)
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) // #nosec G302 -- log file is operator readable
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		handlers = append(handlers, json.New(f))
		closer = f
	}

	if !cfg.Quiet {
		consoleLevel := log.ErrorLevel
		if cfg.Verbose {
			consoleLevel = log.DebugLevel
		}
		handlers = append(handlers, level.New(cli.New(os.Stderr), consoleLevel))
	}

	logger := &log.Logger{Level: log.DebugLevel}
	switch len(handlers) {
	case 0:
		logger.Handler = discard.New()
	case 1:
		logger.Handler = handlers[0]
	default:
		logger.Handler = multi.New(handlers...)
	}
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
