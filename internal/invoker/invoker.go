package invoker

import (
	"context"
	"time"

	"github.com/minwoo/labpilot/internal/plan"
)

// Invoker is the thin transport client the executor calls through. The
// orchestrator treats responses as opaque and only distinguishes the
// error kinds below.
type Invoker interface {
	Invoke(ctx context.Context, baseURL, path string, params map[string]any, timeout time.Duration) (map[string]any, error)
}

// Error carries the transport-level classification of a failed invocation.
type Error struct {
	Kind    plan.ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Classify extracts the error kind from an invocation error. Unknown
// errors count as unreachable.
func Classify(err error) (plan.ErrorKind, string) {
	if ie, ok := err.(*Error); ok {
		return ie.Kind, ie.Message
	}
	return plan.KindUnreachable, err.Error()
}
