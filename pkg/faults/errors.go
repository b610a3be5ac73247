package faults

import (
	"errors"
	"fmt"
)

// Fault classes. Every error returned by the merge packages wraps exactly one of these.
var (
	ErrFormat            = errors.New("format fault")
	ErrIntegrity         = errors.New("integrity fault")
	ErrLookup            = errors.New("lookup fault")
	ErrUsage             = errors.New("usage fault")
	ErrBlockNotInPanel   = fmt.Errorf("block not in panel: %w", ErrLookup)
	ErrMissingCollection = fmt.Errorf("collection not found: %w", ErrLookup)
)

// MergeError provides structured error information for merge operations.
type MergeError struct {
	Op      string // Operation that failed (e.g., "derive", "margin-coordinate")
	Kind    string // Entity kind or topology element type
	Key     string // Logical key, ident or system name
	Node    string // Document tag of the offending node
	Field   string // Attribute name (for malformed values)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *MergeError) Error() string {
	subject := e.Kind
	if e.Node != "" && e.Node != e.Kind {
		if subject != "" {
			subject += " "
		}
		subject += "<" + e.Node + ">"
	}
	if e.Key != "" {
		if subject != "" {
			subject += " "
		}
		subject += fmt.Sprintf("%q", e.Key)
	}
	if e.Field != "" {
		subject += fmt.Sprintf(" (field %s)", e.Field)
	}
	if e.Context != "" {
		if subject == "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s %s: %s: %v", e.Op, subject, e.Context, e.Cause)
	}
	if subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, subject, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *MergeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *MergeError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building MergeErrors.
type ErrorBuilder struct {
	err MergeError
}

// New creates a new error builder for the given operation.
func New(op string) *ErrorBuilder {
	return &ErrorBuilder{err: MergeError{Op: op}}
}

// Kind sets the entity kind or element type.
func (b *ErrorBuilder) Kind(kind string) *ErrorBuilder {
	b.err.Kind = kind
	return b
}

// Key sets the logical key or ident.
func (b *ErrorBuilder) Key(key string) *ErrorBuilder {
	b.err.Key = key
	return b
}

// Node sets the offending document tag.
func (b *ErrorBuilder) Node(tag string) *ErrorBuilder {
	b.err.Node = tag
	return b
}

// Field sets the attribute name.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Contextf sets formatted context information.
func (b *ErrorBuilder) Contextf(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed MergeError.
func (b *ErrorBuilder) Build() *MergeError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// FormatError creates a format fault for an unparseable key or value.
func FormatError(op, key, detail string) error {
	return New(op).Key(key).Context(detail).Cause(ErrFormat).Err()
}

// LookupError creates a lookup fault for a missing entity or topology element.
func LookupError(op, key, detail string) error {
	return New(op).Key(key).Context(detail).Cause(ErrLookup).Err()
}

// UsageError creates a usage fault.
func UsageError(detail string) error {
	return New("usage").Context(detail).Cause(ErrUsage).Err()
}

// IsFormat returns true if the error is a format fault.
func IsFormat(err error) bool {
	return errors.Is(err, ErrFormat)
}

// IsLookup returns true if the error is a lookup fault.
func IsLookup(err error) bool {
	return errors.Is(err, ErrLookup)
}

// IsIntegrity returns true if the error is an integrity fault.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsUsage returns true if the error is a usage fault.
func IsUsage(err error) bool {
	return errors.Is(err, ErrUsage)
}

// IsBlockNotInPanel returns true if a placement was skipped because the block has no
// track on the panel.
func IsBlockNotInPanel(err error) bool {
	return errors.Is(err, ErrBlockNotInPanel)
}
