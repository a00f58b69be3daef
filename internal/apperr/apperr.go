// Package apperr provides the typed errors shared by the forecasting core and
// its presentation layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and presentation.
type Kind string

const (
	KindData      Kind = "DATA"
	KindConfig    Kind = "CONFIG"
	KindModel     Kind = "MODEL"
	KindDateParse Kind = "DATE_PARSE"
)

// Code is a stable machine-readable identifier inside a Kind.
type Code string

const (
	CodeMissingColumn     Code = "MISSING_COLUMN"
	CodeUnreadableDataset Code = "UNREADABLE_DATASET"
	CodeNoValidRecords    Code = "NO_VALID_RECORDS"

	CodeInvalidCapacity Code = "INVALID_CAPACITY"
	CodeInvalidTarget   Code = "INVALID_TARGET_UTILIZATION"
	CodeInvalidRange    Code = "INVALID_DATE_RANGE"
	CodeInvalidSetting  Code = "INVALID_SETTING"

	CodeEmptyTrainingSet Code = "EMPTY_TRAINING_SET"
	CodeDegenerateModel  Code = "DEGENERATE_MODEL"

	CodeBadDate Code = "BAD_DATE"
)

// Error is a structured application error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// NewMissingColumnError reports a dataset that lacks a required column.
func NewMissingColumnError(column string) *Error {
	return &Error{
		Kind:    KindData,
		Code:    CodeMissingColumn,
		Message: "Dataset is missing a required column",
		Details: fmt.Sprintf("column: %s", column),
	}
}

// NewUnreadableDatasetError wraps a failure to read the dataset as a whole.
func NewUnreadableDatasetError(err error) *Error {
	return &Error{
		Kind:    KindData,
		Code:    CodeUnreadableDataset,
		Message: "Dataset could not be read",
		Err:     err,
	}
}

// NewNoValidRecordsError reports that cleaning left nothing to train on.
func NewNoValidRecordsError(total, dropped int) *Error {
	return &Error{
		Kind:    KindData,
		Code:    CodeNoValidRecords,
		Message: "Dataset has no valid records after cleaning",
		Details: fmt.Sprintf("rows: %d, dropped: %d", total, dropped),
	}
}

// NewInvalidCapacityError reports a non-positive capacity ceiling.
func NewInvalidCapacityError(capacity float64) *Error {
	return &Error{
		Kind:    KindConfig,
		Code:    CodeInvalidCapacity,
		Message: "Maximum capacity must be positive",
		Details: fmt.Sprintf("maxCapacity: %g", capacity),
	}
}

// NewInvalidTargetError reports a target utilization outside (0,1].
func NewInvalidTargetError(target float64) *Error {
	return &Error{
		Kind:    KindConfig,
		Code:    CodeInvalidTarget,
		Message: "Target utilization must be in (0, 1]",
		Details: fmt.Sprintf("targetUtilization: %g", target),
	}
}

// NewInvalidRangeError reports a date range whose end precedes its start.
func NewInvalidRangeError(start, end string) *Error {
	return &Error{
		Kind:    KindConfig,
		Code:    CodeInvalidRange,
		Message: "End date is before start date",
		Details: fmt.Sprintf("start: %s, end: %s", start, end),
	}
}

// NewInvalidSettingError reports an unparseable configuration value.
func NewInvalidSettingError(key, value string, err error) *Error {
	return &Error{
		Kind:    KindConfig,
		Code:    CodeInvalidSetting,
		Message: "Invalid configuration value",
		Details: fmt.Sprintf("%s=%q", key, value),
		Err:     err,
	}
}

// NewEmptyTrainingSetError reports training invoked without samples.
func NewEmptyTrainingSetError(target string) *Error {
	return &Error{
		Kind:    KindModel,
		Code:    CodeEmptyTrainingSet,
		Message: "Cannot train a model on zero records",
		Details: fmt.Sprintf("target: %s", target),
	}
}

// NewDegenerateModelError reports a malformed feature matrix.
func NewDegenerateModelError(details string) *Error {
	return &Error{
		Kind:    KindModel,
		Code:    CodeDegenerateModel,
		Message: "Feature matrix is degenerate",
		Details: details,
	}
}

// NewBadDateError wraps a date that failed to parse.
func NewBadDateError(value string, err error) *Error {
	return &Error{
		Kind:    KindDateParse,
		Code:    CodeBadDate,
		Message: "Invalid calendar date",
		Details: fmt.Sprintf("value: %q", value),
		Err:     err,
	}
}
