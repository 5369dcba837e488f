package parser

import (
	"encoding/json"
	"fmt"
)

// FormatError aborts a whole parse: the input is empty, unreadable, or its
// header has no year column.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid format: %s: %v", e.Reason, e.Err)
	}
	return "invalid format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// RowError describes a data row that was skipped.
type RowError struct {
	Line   int
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *RowError) Unwrap() error { return e.Err }

// Diagnostic records one skipped row.
type Diagnostic struct {
	Line int
	Text string
	Err  error
}

func (d Diagnostic) Message() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Line  int    `json:"line"`
		Text  string `json:"text"`
		Error string `json:"error"`
	}{Line: d.Line, Text: d.Text, Error: d.Message()})
}
