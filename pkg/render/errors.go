package render

import (
	"fmt"
	"strings"
)

// ExitError reports a backend process that exited with a non-zero status.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string // last lines of standard error, for the log
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}
