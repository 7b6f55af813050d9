// Package errors provides the error kinds surfaced by the ACBF library.
//
// Every kind is a typed error that unwraps to a package sentinel, so callers
// can branch with errors.Is on the sentinel or errors.As on the type.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Sentinel errors for each error kind.
var (
	// ErrUnsupportedArchive indicates the container magic bytes match no known format.
	ErrUnsupportedArchive = errors.New("unsupported archive")
	// ErrUnsupported indicates an operation the current environment cannot perform.
	ErrUnsupported = errors.New("unsupported")
	// ErrInvalidBook indicates a missing ACBF entry or a schema validation failure.
	ErrInvalidBook = errors.New("invalid book")
	// ErrReadOnly indicates a mutation on a read-only book or archive.
	ErrReadOnly = errors.New("read only")
	// ErrFileExists indicates the target path already exists.
	ErrFileExists = fmt.Errorf("file exists: %w", fs.ErrExist)
	// ErrFileNotFound indicates the source path does not exist.
	ErrFileNotFound = fmt.Errorf("file not found: %w", fs.ErrNotExist)
	// ErrAttribute indicates an operation that is not legal on an entity.
	ErrAttribute = errors.New("attribute error")
	// ErrValue indicates an invariant violation.
	ErrValue = errors.New("invalid value")
	// ErrEntryNotFound indicates a missing data or archive entry.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrImageRef indicates an image reference that could not be resolved.
	ErrImageRef = errors.New("image reference error")
	// ErrIndex indicates an index outside of a collection.
	ErrIndex = errors.New("index out of range")
	// ErrClosed indicates use of a closed book.
	ErrClosed = errors.New("book is closed")
)

// UnsupportedError represents an unsupported container or feature.
type UnsupportedError struct {
	Feature string // Container or feature that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// InvalidBookError reports a book that cannot be loaded or saved.
type InvalidBookError struct {
	Path     string   // File path, if applicable
	Message  string   // Error details
	Problems []string // Schema validation findings
}

func (e *InvalidBookError) Error() string {
	var b strings.Builder
	b.WriteString("invalid book")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Problems) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Problems, "; "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *InvalidBookError) Unwrap() error {
	return ErrInvalidBook
}

// ReadOnlyError represents a write attempted on a read-only resource.
type ReadOnlyError struct {
	Operation string // Operation that was attempted
	Reason    string // Why the resource is read-only
}

func (e *ReadOnlyError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("read only: cannot %s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("read only: %s", e.Reason)
}

func (e *ReadOnlyError) Unwrap() error {
	return ErrReadOnly
}

// AttributeError represents an operation that is not legal on an entity.
type AttributeError struct {
	Entity    string
	Attribute string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s has no editable attribute %q", e.Entity, e.Attribute)
}

func (e *AttributeError) Unwrap() error {
	return ErrAttribute
}

// ValueError represents an invariant violation with context.
type ValueError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation
	Message string // Human-readable error message
}

func (e *ValueError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid value: %s", e.Message)
}

func (e *ValueError) Unwrap() error {
	return ErrValue
}

// NotFoundError represents a missing data store or archive entry.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "binary", "archive entry")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrEntryNotFound, e.Err}
	}
	return []error{ErrEntryNotFound}
}

// ImageRefError reports an image reference that could not be resolved.
type ImageRefError struct {
	Ref     string // The raw reference
	RefType string // Reference type name (Embedded, Archived, URL, Local, SelfArchived)
	Err     error  // Underlying cause
}

func (e *ImageRefError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve %s image reference %q: %v", e.RefType, e.Ref, e.Err)
	}
	return fmt.Sprintf("cannot resolve %s image reference %q", e.RefType, e.Ref)
}

func (e *ImageRefError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrImageRef, e.Err}
	}
	return []error{ErrImageRef}
}

// IndexError reports an index outside a collection.
type IndexError struct {
	Collection string
	Index      int
	Len        int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0:%d]", e.Collection, e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrIndex
}

// IOError represents an I/O operation error with context.
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewUnsupported creates an UnsupportedError.
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// NewUnsupportedArchive creates an UnsupportedError for an unknown container.
func NewUnsupportedArchive(path string) *UnsupportedError {
	return &UnsupportedError{
		Feature: "archive",
		Reason:  fmt.Sprintf("%s matches no known container format", path),
		Err:     ErrUnsupportedArchive,
	}
}

// NewInvalidBook creates an InvalidBookError.
func NewInvalidBook(path, message string, problems ...string) *InvalidBookError {
	return &InvalidBookError{Path: path, Message: message, Problems: problems}
}

// NewReadOnly creates a ReadOnlyError.
func NewReadOnly(operation, reason string) *ReadOnlyError {
	return &ReadOnlyError{Operation: operation, Reason: reason}
}

// NewAttribute creates an AttributeError.
func NewAttribute(entity, attribute string) *AttributeError {
	return &AttributeError{Entity: entity, Attribute: attribute}
}

// NewValue creates a ValueError.
func NewValue(field, message string) *ValueError {
	return &ValueError{Field: field, Message: message}
}

// NewValuef creates a ValueError with a formatted message.
func NewValuef(field, format string, args ...any) *ValueError {
	return &ValueError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewImageRef creates an ImageRefError.
func NewImageRef(ref, refType string, err error) *ImageRefError {
	return &ImageRefError{Ref: ref, RefType: refType, Err: err}
}

// NewIndex creates an IndexError.
func NewIndex(collection string, index, length int) *IndexError {
	return &IndexError{Collection: collection, Index: index, Len: length}
}

// NewIO creates an IOError.
func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// FileExists creates an IOError for an existing target.
func FileExists(path string) *IOError {
	return &IOError{Operation: "create", Path: path, Err: ErrFileExists}
}

// FileNotFound creates an IOError for a missing source.
func FileNotFound(path string) *IOError {
	return &IOError{Operation: "open", Path: path, Err: ErrFileNotFound}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join wraps errors.Join for convenience
func Join(errs ...error) error {
	return errors.Join(errs...)
}
