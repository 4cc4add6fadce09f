package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Ingestion errors are mapped by kind. Anything else (transport and session
// store errors) falls back to case-insensitive pattern matching on the error
// text; the first matching pattern wins.
//
//	FILE001 - Unsupported file type (anything other than .csv/.xlsx/.xls)
//	FILE002 - Unsupported format (.xlsx/.xls recognized, not decoded)
//	FILE003 - Read failure while loading the file
//	FILE004 - File too large
//	FILE005 - No file provided
//	VAL001  - Missing required columns (message lists every name)
//	SES001  - Not ready: both files must be valid before generating
//	SES002  - Session not found or expired
//	SES003  - Unknown slot
//	RPT001  - Report generation failed
//	RPT002  - Report handle unknown to the archive
//	RATE001 - Too many requests
//	ERR000  - Fallback; check the server log for the technical error

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var kindMessages = map[ErrorKind]UserMessage{
	KindUnsupportedFileType: {
		Message: "Unsupported file type",
		Action:  "Upload a .csv file",
		Code:    "FILE001",
	},
	KindUnsupportedFormat: {
		Message: "Binary spreadsheet formats are not yet implemented",
		Action:  "Export the sheet as CSV and upload that file instead",
		Code:    "FILE002",
	},
	KindReadFailure: {
		Message: "The file could not be read",
		Action:  "Select the file again",
		Code:    "FILE003",
	},
	KindMissingColumns: {
		Message: "Required columns are missing",
		Action:  "Add the listed columns to the header row and upload again",
		Code:    "VAL001",
	},
	KindNotReady: {
		Message: "Both files must be uploaded and valid before generating a report",
		Action:  "Upload a valid operational file and a valid base file",
		Code:    "SES001",
	},
	KindGenerateFailed: {
		Message: "The report could not be generated",
		Action:  "Please try again in a few moments",
		Code:    "RPT001",
	},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused rows or columns and upload again",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE005",
		},
	},
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Upload session not found",
			Action:  "The session may have expired. Reload the page to start again",
			Code:    "SES002",
		},
	},
	{
		pattern: "unknown slot",
		msg: UserMessage{
			Message: "Unknown upload slot",
			Action:  "Upload to either the operational or the base slot",
			Code:    "SES003",
		},
	},
	{
		pattern: "stale read",
		msg: UserMessage{
			Message: "A newer file replaced this upload",
			Action:  "Check the slot status; the most recent file is the one kept",
			Code:    "SES004",
		},
	},
	{
		pattern: "no parsed table",
		msg: UserMessage{
			Message: "This slot has no parsed file",
			Action:  "Upload a valid CSV file to this slot first",
			Code:    "SES005",
		},
	},
	{
		pattern: "employee name",
		msg: UserMessage{
			Message: "An employee name is required",
			Action:  "Enter your name before generating the report",
			Code:    "VAL002",
		},
	},
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "Report not found",
			Action:  "Check the report handle in the history list",
			Code:    "RPT002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
// A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ie *IngestionError
	if errors.As(err, &ie) {
		// A read failure caused by the size limit reads better as FILE004.
		if ie.Kind == KindReadFailure && errors.Is(ie, ErrFileTooLarge) {
			return errorPatterns[0].msg
		}
		if msg, ok := kindMessages[ie.Kind]; ok {
			if ie.Kind == KindMissingColumns && len(ie.Missing) > 0 {
				msg.Message = fmt.Sprintf("%s: %s", msg.Message, strings.Join(ie.Missing, ", "))
			}
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
