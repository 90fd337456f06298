package errs

// catalog.go maps pipeline errors to user-facing messages with support codes.
//
// Code groups:
//
//	FMT001-FMT099  file format and structural validation
//	TMO001-TMO099  storage/stream timeouts
//	XFM001-XFM099  row transformation
//	RES001-RES099  scratch and archive I/O
//	STO001-STO099  object storage access
//	JOB001-JOB099  ingestion job lifecycle
//	ERR000         fallback
//
// Typed errors are matched first via errors.As; string patterns catch the
// remaining low-level failures. Patterns are matched case-insensitively and
// the first match wins, so specific patterns come before general ones.

import (
	"errors"
	"strings"
)

// UserMessage is user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "end-of-central-directory",
		msg: UserMessage{
			Message: "The spreadsheet appears truncated or corrupted",
			Action:  "Re-export the file and upload it again",
			Code:    "FMT002",
		},
	},
	{
		pattern: "legacy",
		msg: UserMessage{
			Message: "Legacy .xls workbooks are not supported",
			Action:  "Open the file and save it as .xlsx, then upload again",
			Code:    "FMT003",
		},
	},
	{
		pattern: "no such key",
		msg: UserMessage{
			Message: "The uploaded file could not be found in storage",
			Action:  "Upload the file again",
			Code:    "STO001",
		},
	},
	{
		pattern: "access denied",
		msg: UserMessage{
			Message: "Storage access was denied",
			Action:  "Contact support with this code",
			Code:    "STO002",
		},
	},
	{
		pattern: "too many concurrent ingestions",
		msg: UserMessage{
			Message: "Too many files are being processed right now",
			Action:  "Wait a moment and try again",
			Code:    "JOB001",
		},
	},
	{
		pattern: "job not found",
		msg: UserMessage{
			Message: "The ingestion job was not found",
			Action:  "It may have expired; start a new ingestion",
			Code:    "JOB002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try again, or upload a smaller file",
			Code:    "TMO002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// MapError converts a pipeline error into a UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{Code: "ERR000"}
	}

	var fe *FormatError
	if errors.As(err, &fe) {
		// Structural corruption and legacy rejection carry their own codes.
		for _, p := range errorPatterns {
			if strings.Contains(strings.ToLower(fe.Msg), p.pattern) {
				return p.msg
			}
		}
		return UserMessage{
			Message: "The file is not a supported CSV or XLSX file",
			Action:  "Check the file and upload a .csv or .xlsx export",
			Code:    "FMT001",
		}
	}

	var te *TimeoutError
	if errors.As(err, &te) {
		return UserMessage{
			Message: "Reading the file from storage timed out",
			Action:  "Try again; large files can take several minutes",
			Code:    "TMO001",
		}
	}

	var xe *TransformError
	if errors.As(err, &xe) {
		return UserMessage{
			Message: "A row in the file could not be processed",
			Action:  "Check the file for malformed rows and re-upload",
			Code:    "XFM001",
		}
	}

	var re *ResourceError
	if errors.As(err, &re) {
		return UserMessage{
			Message: "The server ran out of working space while processing",
			Action:  "Try again in a few minutes",
			Code:    "RES001",
		}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}

	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Try again or contact support",
		Code:    "ERR000",
	}
}
