package assistant

import (
	"errors"
	"fmt"
)

// ErrReplyTimeout means no terminal run status was reached within the reply
// timeout budget. The in-flight backend run is neither cancelled nor
// deduplicated; a later call may simply try again.
var ErrReplyTimeout = errors.New("assistant reply timed out")

// TransportError covers backend unavailability and protocol-level failures,
// including malformed response shapes.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("assistant transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError means the backend itself reported a failed or expired run.
type BackendError struct {
	RunStatus RunStatus
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("assistant run ended with status %q", e.RunStatus)
}
