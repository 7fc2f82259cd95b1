// Package logging builds the structured logger shared by the CLI and the
// scheduler.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

const Prefix = "softsim"

// New returns a logger writing to w at the named level ("debug", "info",
// "warn", "error").
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level != "" {
		var err error
		lvl, err = log.ParseLevel(level)
		if err != nil {
			return nil, err
		}
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          Prefix,
		ReportTimestamp: lvl == log.DebugLevel,
	}), nil
}
