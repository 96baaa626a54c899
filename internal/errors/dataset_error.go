// Package errors provides the error taxonomy for dataset operations.
// Every failure surfaced by the codecs, validators, analyzer, filter and
// session layers is a *DatasetError carrying one Kind, so callers can branch
// with errors.Is against the predefined sentinels or with KindOf.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a DatasetError.
type Kind int

const (
	KindUnknown Kind = iota
	KindPath
	KindNotFound
	KindUnsupportedFormat
	KindDecode
	KindEncode
	KindEmptyDataset
	KindDependencyMissing
	KindInvalidArgument
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:           "UnknownError",
	KindPath:              "PathError",
	KindNotFound:          "NotFoundError",
	KindUnsupportedFormat: "UnsupportedFormatError",
	KindDecode:            "DecodeError",
	KindEncode:            "EncodeError",
	KindEmptyDataset:      "EmptyDatasetError",
	KindDependencyMissing: "DependencyMissingError",
	KindInvalidArgument:   "InvalidArgumentError",
	KindInternal:          "InternalError",
}

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// DatasetError represents standardized errors across all dataset operations
type DatasetError struct {
	Kind    Kind   // Taxonomy kind
	Op      string // Operation name (e.g., "Load", "Filter", "RenameField")
	Field   string // Field name if applicable
	Path    string // File path if applicable
	Message string // Human-readable error description
	Hint    string // Optional remediation hint
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DatasetError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	sb.WriteString(" operation failed")
	if e.Field != "" {
		fmt.Fprintf(&sb, " on field '%s'", e.Field)
	}
	if e.Path != "" {
		fmt.Fprintf(&sb, " for path '%s'", e.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	if e.Hint != "" {
		sb.WriteString(" (Hint: ")
		sb.WriteString(e.Hint)
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DatasetError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is(). A sentinel (an
// error with only Kind set) matches every error of that kind; otherwise Kind,
// Op, Field and Message must all match.
func (e *DatasetError) Is(target error) bool {
	t, ok := target.(*DatasetError)
	if !ok {
		return false
	}
	if t.Op == "" && t.Field == "" && t.Path == "" && t.Message == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op && e.Field == t.Field && e.Message == t.Message
}

// WithHint returns a copy of the error carrying a remediation hint.
func (e *DatasetError) WithHint(hint string) *DatasetError {
	cp := *e
	cp.Hint = hint
	return &cp
}

// Sentinels for errors.Is matching by kind.
var (
	ErrPath              = &DatasetError{Kind: KindPath}
	ErrNotFound          = &DatasetError{Kind: KindNotFound}
	ErrUnsupportedFormat = &DatasetError{Kind: KindUnsupportedFormat}
	ErrDecode            = &DatasetError{Kind: KindDecode}
	ErrEncode            = &DatasetError{Kind: KindEncode}
	ErrEmptyDataset      = &DatasetError{Kind: KindEmptyDataset}
	ErrDependencyMissing = &DatasetError{Kind: KindDependencyMissing}
	ErrInvalidArgument   = &DatasetError{Kind: KindInvalidArgument}
	ErrInternal          = &DatasetError{Kind: KindInternal}
)

// KindOf returns the kind of the first DatasetError in err's chain, or
// KindUnknown if there is none.
func KindOf(err error) Kind {
	var de *DatasetError
	if stderrors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// Common error constructors for consistent error creation

// NewPathError creates an error for empty or unusable paths
func NewPathError(op, path, message string) *DatasetError {
	return &DatasetError{Kind: KindPath, Op: op, Path: path, Message: message}
}

// NewNotFoundError creates an error for a missing source file
func NewNotFoundError(op, path string, cause error) *DatasetError {
	return &DatasetError{Kind: KindNotFound, Op: op, Path: path, Message: "file does not exist", Cause: cause}
}

// NewUnsupportedFormatError creates an error for an unrecognized extension
func NewUnsupportedFormatError(op, path, ext string) *DatasetError {
	if ext == "" {
		ext = "(none)"
	}
	return &DatasetError{
		Kind:    KindUnsupportedFormat,
		Op:      op,
		Path:    path,
		Message: fmt.Sprintf("unsupported file format: %s", ext),
	}
}

// NewDecodeError creates an error for content that is malformed for its format
func NewDecodeError(op, path string, cause error) *DatasetError {
	return &DatasetError{Kind: KindDecode, Op: op, Path: path, Message: "malformed content", Cause: cause}
}

// NewEncodeError creates an error for values a format cannot represent
func NewEncodeError(op, field, message string) *DatasetError {
	return &DatasetError{Kind: KindEncode, Op: op, Field: field, Message: message}
}

// NewEmptyDatasetError creates an error for operations that need at least one record
func NewEmptyDatasetError(op string) *DatasetError {
	return &DatasetError{Kind: KindEmptyDataset, Op: op, Message: "dataset has no records"}
}

// NewDependencyMissingError creates an error for a known but unavailable format
func NewDependencyMissingError(op, path, format string) *DatasetError {
	return &DatasetError{
		Kind:    KindDependencyMissing,
		Op:      op,
		Path:    path,
		Message: fmt.Sprintf("support for format %q is not available", format),
	}
}

// NewInvalidArgumentError creates an error for invalid operation inputs
func NewInvalidArgumentError(op, field, message string) *DatasetError {
	return &DatasetError{Kind: KindInvalidArgument, Op: op, Field: field, Message: message}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *DatasetError {
	return &DatasetError{Kind: KindInternal, Op: op, Message: "internal error occurred", Cause: cause}
}
