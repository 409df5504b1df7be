package workflow

import "errors"

// ErrOperationInProgress is returned when a stage is started while the same
// orchestrator is already running. The call is dropped, never queued.
var ErrOperationInProgress = errors.New("operation already in progress")

// ValidationError rejects bad or missing input. It is raised before the
// guard is set and before the interaction lock is touched.
type ValidationError struct {
	Reason string
}

// Error returns the human-readable rejection reason.
func (e *ValidationError) Error() string {
	return e.Reason
}

// validationError builds a ValidationError from a plain message.
func validationError(reason string) error {
	return &ValidationError{Reason: reason}
}
