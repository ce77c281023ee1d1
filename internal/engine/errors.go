package engine

import (
	"errors"
	"fmt"
	"strings"
)

// RuntimeError represents an error detected while applying or dispatching
// a command.
//
// Runtime errors include:
//   - Not found: the command names a record that does not exist
//   - Invalid command: arguments fail validation
//   - Unknown command: no command variant has that name
//   - Duplicate: the command would create a record that already exists
//   - Partial cascade: a later write failed after earlier writes succeeded
//
// None of these stop the engine loop.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Command is the wire name of the command being processed.
	Command string

	// Collection names the affected collection, if any.
	Collection string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNotFound indicates a referenced record does not exist.
	ErrCodeNotFound RuntimeErrorCode = "NOT_FOUND"

	// ErrCodeInvalidCommand indicates the command arguments are invalid.
	ErrCodeInvalidCommand RuntimeErrorCode = "INVALID_COMMAND"

	// ErrCodeUnknownCommand indicates no command has the given name.
	ErrCodeUnknownCommand RuntimeErrorCode = "UNKNOWN_COMMAND"

	// ErrCodeDuplicate indicates the record to create already exists.
	ErrCodeDuplicate RuntimeErrorCode = "DUPLICATE"

	// ErrCodePartialCascade indicates a write failed mid-cascade.
	ErrCodePartialCascade RuntimeErrorCode = "PARTIAL_CASCADE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Command != "" && e.Collection != "" {
		fmt.Fprintf(&b, " (command=%s, collection=%s)", e.Command, e.Collection)
	} else if e.Command != "" {
		fmt.Fprintf(&b, " (command=%s)", e.Command)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsInvalidCommand returns true for invalid and unknown command errors.
func IsInvalidCommand(err error) bool {
	return hasCode(err, ErrCodeInvalidCommand) || hasCode(err, ErrCodeUnknownCommand)
}

// IsUnknownCommand returns true if no command has the requested name.
func IsUnknownCommand(err error) bool { return hasCode(err, ErrCodeUnknownCommand) }

// IsDuplicate returns true if the error is a duplicate-record error.
func IsDuplicate(err error) bool { return hasCode(err, ErrCodeDuplicate) }

// IsPartialCascade returns true if some but not all writes of a cascade persisted.
func IsPartialCascade(err error) bool { return hasCode(err, ErrCodePartialCascade) }

// NewNotFoundError creates a RuntimeError for a missing record.
func NewNotFoundError(command, collection, id string) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("no record %q", id),
		Command:    command,
		Collection: collection,
		Details:    map[string]string{"id": id},
	}
}

// NewInvalidCommandError creates a RuntimeError for bad arguments.
func NewInvalidCommandError(command, message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidCommand,
		Message: message,
		Command: command,
	}
}

// NewUnknownCommandError creates a RuntimeError for an unregistered name.
func NewUnknownCommandError(name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownCommand,
		Message: fmt.Sprintf("unknown command %q", name),
		Command: name,
	}
}

// NewDuplicateError creates a RuntimeError for a record that already exists.
func NewDuplicateError(command, collection, id string) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeDuplicate,
		Message:    fmt.Sprintf("record %q already exists", id),
		Command:    command,
		Collection: collection,
		Details:    map[string]string{"id": id},
	}
}

// NewPartialCascadeError creates a RuntimeError for a failed write after
// the collections in written were already persisted.
func NewPartialCascadeError(command, collection string, written []string, err error) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodePartialCascade,
		Message:    fmt.Sprintf("write failed after %d of the cascade's writes", len(written)),
		Command:    command,
		Collection: collection,
		Details:    map[string]string{"written": strings.Join(written, ",")},
		Err:        err,
	}
}
