package godbf

import (
	"errors"
	"fmt"
)

// Sentinel errors. The structured error types below match them with errors.Is.
var (
	// ErrFormat is returned when the table or memo file is not a valid dBase file.
	ErrFormat = errors.New("invalid dbf format")

	// ErrCorruptMemo is returned when a memo chain cannot be followed.
	ErrCorruptMemo = errors.New("corrupt memo")

	// ErrFieldType is returned when an accessor does not fit the field type.
	ErrFieldType = errors.New("field type mismatch")

	// ErrValueFormat is returned when stored bytes do not parse as the field type.
	ErrValueFormat = errors.New("malformed field value")

	// ErrInvalidState is returned for writes to a read-only store and for
	// field access without a current record.
	ErrInvalidState = errors.New("invalid state")

	// ErrOutOfRange is returned for bad cursor positions, field indexes and
	// values that do not fit their field.
	ErrOutOfRange = errors.New("out of range")

	// ErrCanceled is returned when a long running scan was interrupted.
	ErrCanceled = errors.New("operation canceled")

	ErrInvalidFieldName = errors.New("invalid field name")
	ErrSchemaLocked     = errors.New("schema is locked")
	ErrDuplicateField   = errors.New("duplicate or empty field")
	ErrUnsupportedType  = errors.New("unsupported field type")

	// ErrMissingMemo is returned when a memo field is read or written but no
	// memo file is attached to the store.
	ErrMissingMemo = errors.New("memo file not attached")
)

// FormatError describes a structural problem in a table or memo file.
type FormatError struct {
	Reason string
	Err    error
}

func newFormatError(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

func newCorruptMemo(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...), Err: ErrCorruptMemo}
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dbf format: %s: %v", e.Reason, e.Err)
	}
	return "dbf format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// FieldTypeError is returned when an accessor is called on a field of an
// incompatible type.
type FieldTypeError struct {
	Field  string
	Type   FieldType
	Access string
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %s of type %c does not support %s", e.Field, byte(e.Type), e.Access)
}

func (e *FieldTypeError) Is(target error) bool { return target == ErrFieldType }

// ValueFormatError is returned when the bytes of a field cannot be decoded.
type ValueFormatError struct {
	Row   int
	Field string
	Type  FieldType
	Raw   []byte
	Err   error
}

func (e *ValueFormatError) Error() string {
	msg := fmt.Sprintf("row %d field %s (%c): cannot decode %q", e.Row, e.Field, byte(e.Type), e.Raw)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValueFormatError) Unwrap() error { return e.Err }

func (e *ValueFormatError) Is(target error) bool { return target == ErrValueFormat }
