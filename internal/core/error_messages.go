package core

// error_messages.go maps technical errors to user-facing messages with codes
// that can be quoted to support staff.
//
// Codes are grouped by category:
//
//	TYP001        Unknown report/master type
//	FILE001-006   File errors (size, sheets, empty, missing columns, format)
//	DB001-007     Database errors (constraints, connectivity)
//	VAL001-004    Row value errors
//	UPL001-003    Run errors (busy, cancelled, timed out)
//	ERR000        Anything else; check the logs for the technical error
//
// Typed errors are matched first with errors.As. Everything else falls back
// to case-insensitive substring patterns, first match wins. Row errors in a
// BulkResult carry the code of the pattern their message matches; see
// RowErrorCode.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database constraints
	{"duplicate key", UserMessage{"A record with this key already exists", "Review the failed rows for duplicates", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check for duplicate entries in your file", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Review your data for duplicate key values", "DB002"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "Upload the related master data first", "DB003"}},

	// Database connectivity
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// Row values
	{"is required", UserMessage{"Required field is empty", "Ensure all required columns have values", "VAL001"}},
	{"duplicate", UserMessage{"Row repeats a key seen earlier in the file", "Remove the repeated rows", "VAL002"}},
	{"does not exist", UserMessage{"Row references unknown master data", "Upload the related master data first", "VAL003"}},

	// File handling
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated", "FILE006"}},
	{"open xlsx", UserMessage{"File could not be read as an Excel workbook", "Re-save the file as .xlsx", "FILE006"}},
	{"open xls", UserMessage{"File could not be read as an Excel workbook", "Re-save the file as .xlsx", "FILE006"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to upload", "FILE005"}},
	{"invalid ", UserMessage{"A value could not be read", "Check the value against the column's expected format", "VAL004"}},

	// Runs
	{"too many uploads", UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try uploading a smaller file or try again later", "UPL003"}},
	{"timeout", UserMessage{"Operation timed out", "Try uploading a smaller file or try again later", "DB006"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		unknown *UnknownTypeError
		noSheet *NoSheetError
		empty   *EmptyFileError
		missing *MissingColumnsError
	)
	switch {
	case errors.As(err, &unknown):
		return UserMessage{"Unknown report type " + unknown.Key, "Choose one of the listed report types", "TYP001"}
	case errors.Is(err, ErrFileTooLarge):
		return UserMessage{"File exceeds the maximum size limit", "Split the file into smaller parts", "FILE001"}
	case errors.As(err, &noSheet):
		return UserMessage{"The workbook contains no sheets", "Upload a workbook with data on the first sheet", "FILE002"}
	case errors.As(err, &empty):
		return UserMessage{"The uploaded file has no data rows", "Upload a file with a header row and data rows", "FILE003"}
	case errors.As(err, &missing):
		return UserMessage{"Required columns are missing: " + strings.Join(missing.Missing, ", "), "Check the header row against the template", "FILE004"}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{"Request timed out", "Try uploading a smaller file or try again later", "UPL003"}
	}

	if msg, ok := matchPattern(err.Error()); ok {
		return msg
	}
	return defaultMessage
}

func matchPattern(s string) (UserMessage, bool) {
	s = strings.ToLower(s)
	for _, ep := range errorPatterns {
		if strings.Contains(s, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// RowErrorCode returns the code for a row error message, or "" when no
// pattern matches.
func RowErrorCode(message string) string {
	msg, _ := matchPattern(message)
	return msg.Code
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
