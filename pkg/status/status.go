package status

import (
	"errors"
	"fmt"
)

// Exit codes are part of the tool's contract; downstream wrappers key off
// them, so they must stay stable.
const (
	OK = 0
	// UnsupportedHTTPProtocol is returned when the HTTP probe mechanism
	// rejects the URL's scheme outright.
	UnsupportedHTTPProtocol = 1
	Interrupted             = 2
	MalformedURL            = 3
	MissingHostPort         = 100
	UnsupportedScheme       = 250
	TimedOut                = 251
)

// ExitError carries the process exit code alongside a short reason and the
// raw target address it relates to.
type ExitError struct {
	Code   int
	Target string
	Reason string
}

func (e *ExitError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s (exit %d)", e.Reason, e.Code)
	}
	return fmt.Sprintf("%s: %s (exit %d)", e.Target, e.Reason, e.Code)
}

func Exitf(code int, target, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Target: target, Reason: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the exit code from err. Errors that do not carry an
// explicit code map to 1.
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}
