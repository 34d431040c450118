package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSystem is returned when no catalog entry exists for a system.
var ErrUnknownSystem = errors.New("unknown system")

// ErrEmptyFile is returned when a file has no header line.
var ErrEmptyFile = errors.New("empty file")

// FileHeaderError means required columns are absent from a file's header.
// The whole file is rejected and nothing is emitted.
type FileHeaderError struct {
	System  MeasurementSystem
	Missing []string
}

func (e *FileHeaderError) Error() string {
	return fmt.Sprintf("missing required column(s) for %s: %s", e.System, strings.Join(e.Missing, ", "))
}

// Code returns the anomaly code persisted with the file status.
func (e *FileHeaderError) Code() string { return "MISSING_COLUMN" }

// RowCoercionError means a required field of one row could not be coerced.
type RowCoercionError struct {
	Column string
	Value  string
	Reason string
}

func (e *RowCoercionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Column, e.Value, e.Reason)
}

// Code returns the anomaly code persisted with the row error.
func (e *RowCoercionError) Code() string { return "ROW_COERCION" }

// MalformedLocationError means a chainage token could not be decomposed.
type MalformedLocationError struct {
	Location string
}

func (e *MalformedLocationError) Error() string {
	return fmt.Sprintf("malformed location %q: want <km>+<m>", e.Location)
}

// Code returns the anomaly code persisted with the row error.
func (e *MalformedLocationError) Code() string { return "MALFORMED_LOCATION" }

// coder is implemented by the typed errors above.
type coder interface {
	Code() string
}

// ErrorCode returns the anomaly code of err, or "ERROR" for untyped errors.
func ErrorCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return "ERROR"
}

// errorColumn returns the column a row error refers to, if any.
func errorColumn(err error) string {
	var rce *RowCoercionError
	if errors.As(err, &rce) {
		return rce.Column
	}
	var mle *MalformedLocationError
	if errors.As(err, &mle) {
		return "location"
	}
	return ""
}

// RowErrorRecords flattens the row errors of a result for persistence.
func (r *FileResult) RowErrorRecords() []RowErrorRecord {
	out := make([]RowErrorRecord, 0, len(r.RowErrors))
	for _, re := range r.RowErrors {
		out = append(out, RowErrorRecord{
			ReportID:   r.ReportID,
			LineNumber: re.LineNumber,
			Code:       ErrorCode(re.Err),
			Column:     errorColumn(re.Err),
			Reason:     re.Err.Error(),
		})
	}
	return out
}

// MissingColumnRecords flattens the header diff of a result for persistence.
func (r *FileResult) MissingColumnRecords() []MissingColumn {
	var out []MissingColumn
	add := func(status string, cols []string) {
		for _, c := range cols {
			out = append(out, MissingColumn{ReportID: r.ReportID, Column: c, Status: status})
		}
	}
	add("missing_required", r.Diff.MissingRequired)
	add("missing_optional", r.Diff.MissingOptional)
	add("extra", r.Diff.Extra)
	return out
}
