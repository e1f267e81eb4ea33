// Package apperr defines the coded error taxonomy shared by the POS core.
//
// Every failure reported by the store, catalog, cart and checkout packages is
// (or wraps) an *Error carrying one of four codes:
//
//   - VALIDATION: caller data violates a field constraint; detected before any write
//   - NOT_FOUND: a referenced id does not exist in a collection
//   - STORAGE: the storage engine failed (disk full, locked, closed)
//   - PARTIAL_COMMIT: a sale was recorded but some stock deductions were skipped
//
// Predicates use errors.As so codes survive fmt.Errorf("...: %w") wrapping.
package apperr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Code categorizes an Error.
type Code string

const (
	// CodeValidation indicates caller-supplied data violates a field constraint.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound indicates a referenced id does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStorage indicates the underlying storage engine failed.
	CodeStorage Code = "STORAGE"

	// CodePartialCommit indicates a sale persisted while one or more of its
	// stock deductions did not apply.
	CodePartialCommit Code = "PARTIAL_COMMIT"
)

// Error is the structured error returned across package boundaries.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the failed operation in plain language ("add product").
	Op string

	// Field names the offending field for validation errors.
	Field string

	// Message is a human-readable description.
	Message string

	// Details carries additional context (ids, counts).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a VALIDATION error for a single field.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

// NotFound creates a NOT_FOUND error for a record in a collection.
func NotFound(collection string, id int64) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %d not found", collection, id),
		Details: map[string]string{
			"collection": collection,
			"id":         strconv.FormatInt(id, 10),
		},
	}
}

// Storage wraps an engine failure for the named operation.
func Storage(op string, err error) *Error {
	return &Error{Code: CodeStorage, Op: op, Message: "storage failure", Err: err}
}

// PartialCommit creates a PARTIAL_COMMIT warning for a recorded sale whose
// listed products could not be found during stock deduction.
func PartialCommit(saleID int64, skipped []int64) *Error {
	ids := make([]string, len(skipped))
	for i, id := range skipped {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return &Error{
		Code:    CodePartialCommit,
		Op:      "deduct stock",
		Message: fmt.Sprintf("sale %d recorded but %d stock deduction(s) skipped", saleID, len(skipped)),
		Details: map[string]string{
			"sale_id":  strconv.FormatInt(saleID, 10),
			"products": strings.Join(ids, ","),
		},
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a VALIDATION error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsStorage reports whether err is a STORAGE error.
func IsStorage(err error) bool {
	return CodeOf(err) == CodeStorage
}

// IsPartialCommit reports whether err is a PARTIAL_COMMIT warning.
func IsPartialCommit(err error) bool {
	return CodeOf(err) == CodePartialCommit
}

// FieldOf returns the offending field of a VALIDATION error, or "".
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
