package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStaleRead is returned when a read completes after a newer read was
	// started on the same slot. The completion is discarded.
	ErrStaleRead = errors.New("stale read discarded")

	// ErrUnknownSlot is returned for slot names other than operational/base.
	ErrUnknownSlot = errors.New("unknown slot")

	// ErrFileTooLarge is wrapped in a ReadFailure when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// ErrorKind classifies ingestion failures.
type ErrorKind int

const (
	KindUnsupportedFileType ErrorKind = iota + 1
	KindUnsupportedFormat
	KindReadFailure
	KindMissingColumns
	KindNotReady
	KindGenerateFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupportedFileType:
		return "unsupported_file_type"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindReadFailure:
		return "read_failure"
	case KindMissingColumns:
		return "missing_columns"
	case KindNotReady:
		return "not_ready"
	case KindGenerateFailed:
		return "generate_failed"
	default:
		return "unknown"
	}
}

// IngestionError is the error type returned by the parser and the session.
// Slot is empty for failures not caused by a particular slot.
type IngestionError struct {
	Kind    ErrorKind
	Slot    Slot
	Missing []string // set for KindMissingColumns
	Err     error
}

func (e *IngestionError) Error() string {
	var msg string
	switch e.Kind {
	case KindUnsupportedFileType:
		msg = "unsupported file type"
	case KindUnsupportedFormat:
		msg = "binary spreadsheet formats not yet implemented"
	case KindReadFailure:
		msg = "read failure"
	case KindMissingColumns:
		msg = "missing required columns: " + strings.Join(e.Missing, ", ")
	case KindNotReady:
		msg = "both files must be uploaded and valid before generating a report"
	case KindGenerateFailed:
		msg = "report generation failed"
	default:
		msg = "ingestion error"
	}
	if e.Slot != "" {
		msg = fmt.Sprintf("%s: %s", e.Slot, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *IngestionError of the same kind, so
// callers can write errors.Is(err, &IngestionError{Kind: KindNotReady}).
func (e *IngestionError) Is(target error) bool {
	t, ok := target.(*IngestionError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether submitting the same input again could succeed.
// Unsupported formats and file types never will.
func (e *IngestionError) Retryable() bool {
	switch e.Kind {
	case KindUnsupportedFileType, KindUnsupportedFormat, KindMissingColumns:
		return false
	default:
		return true
	}
}

// KindOf returns the ErrorKind of err, or 0 if err is not an IngestionError.
func KindOf(err error) ErrorKind {
	var ie *IngestionError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return 0
}

func newError(kind ErrorKind, slot Slot, err error) *IngestionError {
	return &IngestionError{Kind: kind, Slot: slot, Err: err}
}
