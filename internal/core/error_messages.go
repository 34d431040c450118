package core

// error_messages.go maps technical errors to operator-facing messages with
// codes for support reference.
//
// # Error Codes Reference
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: This report was already ingested
//	        Patterns: "duplicate key", "unique constraint"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//
//	DB008 - Database locked: Local database is busy
//	        Patterns: "database is locked"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL002 - Invalid number: A required measurement is not a number
//	         Patterns: "invalid number"
//
//	VAL003 - Required field: A required field is empty
//	         Patterns: "required field", "no value for required column"
//
//	VAL004 - Missing column: Required column is missing from the export
//	         Patterns: "missing required column"
//
//	VAL007 - Invalid coordinate: Latitude or longitude is unreadable
//	         Patterns: "invalid coordinate"
//
// # Location Errors (LOC001-LOC099)
//
//	LOC001 - Malformed location: Chainage is not <km>+<m>
//	         Patterns: "malformed location"
//
// # System Errors (SYS001-SYS099)
//
//	SYS001 - Unknown system: File name does not start with a known system code
//	         Patterns: "unknown system"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV
//	          Patterns: "invalid csv", "bare \" in non-quoted-field"
//
//	FILE004 - No file
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file
//	          Patterns: "empty file"
//
// # Ingest Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many ingests in progress
//	         Patterns: "too many ingests"
//
//	UPL004 - Request cancelled
//	         Patterns: "context canceled", "processing cancelled"
//
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
//	UPL006 - Pipeline locked: Another worker holds the pipeline lock
//	         Patterns: "pipeline lock"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check application logs for the original error
//
// Patterns are matched case-insensitively using strings.Contains; the first
// matching pattern wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgDuplicate = UserMessage{
		Message: "This report was already ingested",
		Action:  "Check the report id or remove the previous ingest first",
		Code:    "DB001",
	}
	msgRequiredField = UserMessage{
		Message: "A required field is empty",
		Action:  "Ensure every row has sscount, track, location and coordinates",
		Code:    "VAL003",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Export again with a consistent delimiter and quoting",
		Code:    "FILE002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: specific patterns before general ones.
var errorPatterns = []errorPattern{
	// Database
	{pattern: "duplicate key", msg: msgDuplicate},
	{pattern: "unique constraint", msg: msgDuplicate},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Local database is busy",
			Action:  "Please try again",
			Code:    "DB008",
		},
	},

	// Validation
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from the export",
			Action:  "Check the export settings of the measurement system",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "A required measurement is not a number",
			Action:  "Check the decimal mark and delimiter of the export",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid coordinate",
		msg: UserMessage{
			Message: "Latitude or longitude is unreadable",
			Action:  "Check the positioning columns of the export",
			Code:    "VAL007",
		},
	},
	{pattern: "required field", msg: msgRequiredField},
	{pattern: "no value for required column", msg: msgRequiredField},

	// Location
	{
		pattern: "malformed location",
		msg: UserMessage{
			Message: "Chainage is not in <km>+<m> form",
			Action:  "Check the location column of the export",
			Code:    "LOC001",
		},
	},

	// System
	{
		pattern: "unknown system",
		msg: UserMessage{
			Message: "File name does not start with a known system code",
			Action:  "Name the file <SYSTEM>_<id>_....csv, e.g. AMS_1234_export.csv",
			Code:    "SYS001",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the export into smaller files",
			Code:    "FILE001",
		},
	},
	{pattern: "invalid csv", msg: msgInvalidCSV},
	{pattern: `bare " in non-quoted-field`, msg: msgInvalidCSV},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to ingest",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Please provide a CSV export with a header and data rows",
			Code:    "FILE005",
		},
	},

	// Ingest
	{
		pattern: "too many ingests",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "pipeline lock",
		msg: UserMessage{
			Message: "Another worker is processing the directory",
			Action:  "Wait for the running ingest to finish",
			Code:    "UPL006",
		},
	},
	{pattern: "processing cancelled", msg: msgCancelled},
	{pattern: "context canceled", msg: msgCancelled},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or raise INGEST_TIMEOUT",
			Code:    "UPL005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// The first matching pattern wins; ERR000 is returned when nothing matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, strings.ToLower(ep.pattern)) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a *UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
