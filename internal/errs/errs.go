// Package errs defines the domain error taxonomy shared by the store,
// the detection services and the HTTP handlers.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a reference to a scene or detection that does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or out-of-range input. Handlers surface
// it as a 4xx response before any side effect takes place.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, v ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, v...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvalidInputError reports media that could not be decoded at all,
// for example an upload that is not an image.
type InvalidInputError struct {
	Path string
	Err  error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid input %s", e.Path)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err is (or wraps) an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// DetectionError reports a failure inside the detection pipeline with the
// originating cause attached. The adapter never retries.
type DetectionError struct {
	Op  string
	Err error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detection %s: %v", e.Op, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}

// Detection wraps cause as a DetectionError for operation op.
func Detection(op string, cause error) *DetectionError {
	return &DetectionError{Op: op, Err: cause}
}

// IsDetection reports whether err is (or wraps) a DetectionError.
func IsDetection(err error) bool {
	var de *DetectionError
	return errors.As(err, &de)
}

// DatabaseError reports a storage-layer failure. Callers must not assume
// partial writes: batch inserts are atomic.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// Database wraps cause as a DatabaseError for operation op.
func Database(op string, cause error) *DatabaseError {
	return &DatabaseError{Op: op, Err: cause}
}

// IsDatabase reports whether err is (or wraps) a DatabaseError.
func IsDatabase(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de)
}
