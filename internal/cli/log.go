// Package cli implements the gitdeps command-line interface.
//
// # Commands
//
//   - install (default): install the dependencies of the project manifest
//   - refs: list the refs of a repository and show how a specifier resolves
//   - cache: manage the archive cache
//   - completion: generate shell completion scripts
//
// # Output
//
// Report lines ("<name>@<treeish> <dest>") go to stdout, one per dependency,
// so they can be consumed by scripts. Logs and status messages go to stderr.
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, rounded to the millisecond.
// Example output: "Installed 3 dependencies (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
