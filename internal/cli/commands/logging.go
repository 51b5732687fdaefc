package commands

import (
	"fmt"
	"time"

	"github.com/lixenwraith/log"
)

// newLogger creates the diagnostic logger. Output goes to stderr only;
// verbose enables debug messages and quiet silences everything.
func newLogger(verbose, quiet bool) (*log.Logger, error) {
	logger := log.NewLogger()

	args := []string{"disable_file=true"}
	switch {
	case quiet:
		args = append(args, "enable_stdout=false", "level=255")
	case verbose:
		args = append(args, "enable_stdout=true", "stdout_target=stderr", fmt.Sprintf("level=%d", int(log.LevelDebug)))
	default:
		args = append(args, "enable_stdout=true", "stdout_target=stderr", fmt.Sprintf("level=%d", int(log.LevelWarn)))
	}

	if err := logger.InitWithDefaults(args...); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, nil
}

// closeLogger flushes pending log records.
func closeLogger(logger *log.Logger) {
	if logger != nil {
		_ = logger.Shutdown(time.Second)
	}
}
