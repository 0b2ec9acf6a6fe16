package importer

import "fmt"

// FormatError indicates unreadable or empty input. It is fatal: it surfaces
// before any job is created and no rows are processed.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return e.Reason
}

func formatErrorf(format string, args ...interface{}) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// ResolutionError indicates a catalog write was rejected for one row.
// It is captured in the row audit and never aborts the job.
type ResolutionError struct {
	Message string
	Cause   error
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}
