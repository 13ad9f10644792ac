package cli

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

// Process exit statuses for failed commands.
const (
	ExitFailure = 1
	ExitFatal   = 2 // the service could not bind or keep its socket
)

// Report writes err to w the way a user should read it and returns the exit
// status for it. Silent errors only set the status.
func Report(w io.Writer, err error) int {
	if !IsSilent(err) {
		msg := errors.UserMessage(err)
		var e *errors.Error
		if stderrors.As(err, &e) && e.Cause != nil {
			msg += ": " + e.Cause.Error()
		}
		fmt.Fprintln(w, "Error: "+msg)
	}
	if errors.IsFatal(err) {
		return ExitFatal
	}
	return ExitFailure
}
