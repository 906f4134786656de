package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFileTooLarge is returned when an upload exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file too large")

// ErrStreamConsumed is yielded when a SheetStream is iterated a second time.
var ErrStreamConsumed = errors.New("sheet stream already consumed")

// UnknownTypeError is returned for an unregistered report/master type key.
type UnknownTypeError struct {
	Key string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type: %q", e.Key)
}

// NoSheetError is returned when a workbook contains no sheets.
type NoSheetError struct {
	FileName string
}

func (e *NoSheetError) Error() string {
	return fmt.Sprintf("no sheets found in %s", e.FileName)
}

// EmptyFileError is returned when the first sheet has no rows, or no data
// rows after the header.
type EmptyFileError struct {
	FileName string
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("empty file: %s has no data rows", e.FileName)
}

// MissingColumnsError lists required headers absent from the header row.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// IsFatal reports whether err aborts a whole run (as opposed to a row).
func IsFatal(err error) bool {
	var (
		unknown *UnknownTypeError
		noSheet *NoSheetError
		empty   *EmptyFileError
		missing *MissingColumnsError
	)
	return errors.As(err, &unknown) ||
		errors.As(err, &noSheet) ||
		errors.As(err, &empty) ||
		errors.As(err, &missing) ||
		errors.Is(err, ErrFileTooLarge)
}
