// Package errs defines the error taxonomy shared by the ingestion pipeline.
//
// Four categories cover every failure the pipeline can surface:
//
//   - FormatError: the blob is not a recognized or structurally valid file
//   - TimeoutError: a storage or stream operation exceeded its wall-clock budget
//   - TransformError: a row could not be transformed even with defaulting
//   - ResourceError: scratch-file or archive I/O failed (disk full, permissions)
//
// All types wrap their low-level cause so observability tooling keeps the
// root error while callers branch on category with errors.As.
package errs

import (
	"errors"
	"fmt"
)

// FormatError reports an unrecognized, corrupted, or unsupported input file.
// The message distinguishes "convert your file" from "re-export, this one is
// damaged" so callers can show an actionable prompt.
type FormatError struct {
	Msg   string
	Cause error
}

func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("file format: %s: %v", e.Msg, e.Cause)
	}
	return "file format: " + e.Msg
}

func (e *FormatError) Unwrap() error { return e.Cause }

// Format builds a FormatError without a cause.
func Format(format string, args ...any) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// FormatWrap builds a FormatError around a cause.
func FormatWrap(cause error, format string, args ...any) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// TimeoutError reports a storage or stream operation that exceeded its
// allotted wall-clock budget. Surfaced distinctly from FormatError so the
// caller can offer a retry.
type TimeoutError struct {
	Op    string
	Cause error
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s timed out: %v", e.Op, e.Cause)
	}
	return e.Op + " timed out"
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// Timeout builds a TimeoutError for the named operation.
func Timeout(op string, cause error) *TimeoutError {
	return &TimeoutError{Op: op, Cause: cause}
}

// TransformError reports a row that failed transformation in a way that
// could not be defaulted. Routine cases (blank numeric cells) never produce
// this; they default instead.
type TransformError struct {
	Row   int
	Msg   string
	Cause error
}

func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transform row %d: %s: %v", e.Row, e.Msg, e.Cause)
	}
	return fmt.Sprintf("transform row %d: %s", e.Row, e.Msg)
}

func (e *TransformError) Unwrap() error { return e.Cause }

// ResourceError reports scratch-file or archive I/O failure.
type ResourceError struct {
	Path  string
	Cause error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %s: %v", e.Path, e.Cause)
}

func (e *ResourceError) Unwrap() error { return e.Cause }

// Resource builds a ResourceError for the given path.
func Resource(path string, cause error) *ResourceError {
	return &ResourceError{Path: path, Cause: cause}
}

// IsTimeout reports whether err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsFormat reports whether err is or wraps a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
