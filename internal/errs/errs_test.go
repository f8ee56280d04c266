package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationf(t *testing.T) {
	err := Validationf("confidence %f out of range", 1.5)
	if !IsValidation(err) {
		t.Error("IsValidation should match a ValidationError")
	}
	if err.Error() != "confidence 1.500000 out of range" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if IsValidation(errors.New("plain")) {
		t.Error("IsValidation should not match a plain error")
	}
}

func TestDetectionUnwrap(t *testing.T) {
	cause := errors.New("model not loaded")
	err := Detection("dnn", cause)

	if !IsDetection(err) {
		t.Error("IsDetection should match a DetectionError")
	}
	if !errors.Is(err, cause) {
		t.Error("DetectionError should unwrap to its cause")
	}

	wrapped := fmt.Errorf("scene 3: %w", err)
	if !IsDetection(wrapped) {
		t.Error("IsDetection should match through wrapping")
	}
}

func TestDatabaseUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Database("insert scene", cause)

	if !IsDatabase(err) {
		t.Error("IsDatabase should match a DatabaseError")
	}
	if !errors.Is(err, cause) {
		t.Error("DatabaseError should unwrap to its cause")
	}
	if err.Error() != "database insert scene: disk full" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestInvalidInput(t *testing.T) {
	err := &InvalidInputError{Path: "/uploads/blob.bin"}
	if !IsInvalidInput(err) {
		t.Error("IsInvalidInput should match an InvalidInputError")
	}
	if err.Error() != "invalid input /uploads/blob.bin" {
		t.Errorf("Unexpected message %q", err.Error())
	}

	withCause := &InvalidInputError{Path: "x.jpg", Err: errors.New("decode failed")}
	if !errors.Is(withCause, withCause.Err) {
		t.Error("InvalidInputError should unwrap to its cause")
	}
}

func TestErrNotFoundIsDistinct(t *testing.T) {
	if IsValidation(ErrNotFound) || IsDatabase(ErrNotFound) || IsDetection(ErrNotFound) {
		t.Error("ErrNotFound must not match the typed categories")
	}
	if !errors.Is(fmt.Errorf("scene 9: %w", ErrNotFound), ErrNotFound) {
		t.Error("ErrNotFound should match through wrapping")
	}
}
