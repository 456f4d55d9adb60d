package probe

import "github.com/go-go-golems/waitfor/pkg/status"

type Class int

const (
	// Success means the target answered; waiting is over.
	Success Class = iota
	// Retryable means the attempt failed in a way that another attempt may
	// fix; the scheduler keeps polling.
	Retryable
	// Fatal aborts the whole run with the outcome's exit code.
	Fatal
)

// Outcome is the tagged result of a single probe attempt. Probers never let
// a retryable condition escape as an error; everything funnels through here.
type Outcome struct {
	Class  Class
	Reason string
	Code   int
}

func Succeeded() Outcome {
	return Outcome{Class: Success}
}

func Retry(reason string) Outcome {
	return Outcome{Class: Retryable, Reason: reason}
}

func Abort(code int, reason string) Outcome {
	return Outcome{Class: Fatal, Reason: reason, Code: code}
}

// Err converts a fatal outcome into the typed error the scheduler
// propagates. Non-fatal outcomes yield nil.
func (o Outcome) Err(target string) error {
	if o.Class != Fatal {
		return nil
	}
	return status.Exitf(o.Code, target, "%s", o.Reason)
}
