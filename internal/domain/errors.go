package domain

import (
	"errors"
	"fmt"
)

// Write-path validation failures. None of these ever reach the event log.
var (
	ErrInvalidName       = errors.New("invalid name: must be a non-empty string with at least 2 characters")
	ErrInvalidSalary     = errors.New("invalid salary: must be a non-negative number")
	ErrInvalidDeductions = errors.New("invalid deductions: must be a non-negative number")
)

// ErrInvalidEventKind is returned when something outside the closed set of
// kinds is offered for append or found during replay.
var ErrInvalidEventKind = errors.New("invalid event kind")

// ErrEmployeeNotFound is returned when no event exists for an employee id.
var ErrEmployeeNotFound = errors.New("employee not found")

// IsValidation reports whether err is a caller-input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidSalary) ||
		errors.Is(err, ErrInvalidDeductions)
}

// PersistenceError reports an I/O failure of the durable store. It is not
// retried by the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CorruptEventError reports a stored event whose payload cannot be read back
// for its kind.
type CorruptEventError struct {
	Seq  int64
	Kind Kind
	Err  error
}

func (e *CorruptEventError) Error() string {
	return fmt.Sprintf("corrupt event seq=%d kind=%s: %v", e.Seq, e.Kind, e.Err)
}

func (e *CorruptEventError) Unwrap() error {
	return e.Err
}
