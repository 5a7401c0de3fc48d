package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error. Kinds are comparable sentinels usable with errors.Is.
type Kind struct {
	code    ErrorCode
	msg     string
	warning bool
}

// Error implements the error interface.
func (k *Kind) Error() string { return k.msg }

// Code returns the stable string code of the kind.
func (k *Kind) Code() ErrorCode { return k.code }

// Warning reports whether errors of this kind are warnings rather than failures.
func (k *Kind) Warning() bool { return k.warning }

// Sentinel kinds. Check them with errors.Is().
var (
	// ErrManifestUnreachable indicates the manifest could not be fetched
	ErrManifestUnreachable = &Kind{code: CodeManifestUnreachable, msg: "patcher: manifest unreachable"}

	// ErrManifestInvalid indicates the manifest is malformed or incomplete
	ErrManifestInvalid = &Kind{code: CodeManifestInvalid, msg: "patcher: manifest invalid"}

	// ErrSigning indicates a request could not be signed
	ErrSigning = &Kind{code: CodeSigning, msg: "patcher: signing error"}

	// ErrDownloadFailed indicates an object could not be downloaded
	ErrDownloadFailed = &Kind{code: CodeDownloadFailed, msg: "patcher: download failed"}

	// ErrDigestMismatch indicates a downloaded file does not match its digest
	ErrDigestMismatch = &Kind{code: CodeDigestMismatch, msg: "patcher: digest mismatch", warning: true}

	// ErrDeleteFailed indicates a deprecated file could not be removed
	ErrDeleteFailed = &Kind{code: CodeDeleteFailed, msg: "patcher: delete failed", warning: true}

	// ErrFilesystem indicates a local filesystem failure
	ErrFilesystem = &Kind{code: CodeFilesystem, msg: "patcher: filesystem error"}

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = &Kind{code: CodeNotFound, msg: "patcher: object not found"}

	// ErrAccessDenied indicates that access to the object is denied
	ErrAccessDenied = &Kind{code: CodeForbidden, msg: "patcher: access denied"}

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = &Kind{code: CodeInvalidInput, msg: "patcher: invalid input"}

	// ErrCancelled indicates the caller cancelled the operation
	ErrCancelled = &Kind{code: CodeCancelled, msg: "patcher: cancelled"}
)

// Error represents a patcher error with context about the operation that failed.
type Error struct {
	// Op is the operation that failed (e.g., "fetch", "delete", "parse")
	Op string

	// Path is the manifest-relative path concerned (if applicable)
	Path string

	// Kind classifies the failure
	Kind *Kind

	// Err is the underlying cause
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	kind := "error"
	if e.Kind != nil {
		kind = string(e.Kind.code)
	}
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("patcher.%s %s [%s]: %v", e.Op, e.Path, kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("patcher.%s %s [%s]", e.Op, e.Path, kind)
	case e.Err != nil:
		return fmt.Sprintf("patcher.%s [%s]: %v", e.Op, kind, e.Err)
	default:
		return fmt.Sprintf("patcher.%s [%s]", e.Op, kind)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Code returns the error code of the kind, or CodeUnknown.
func (e *Error) Code() ErrorCode {
	if e.Kind == nil {
		return CodeUnknown
	}
	return e.Kind.code
}

// IsWarning reports whether the error should be surfaced as a warning.
func (e *Error) IsWarning() bool {
	return e.Kind != nil && e.Kind.warning
}

// WithPath adds path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	if e.Err == nil {
		e.Err = errors.New(message)
		return e
	}
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// New creates a new Error with the given operation, kind and cause.
func New(op string, kind *Kind, err error) *Error {
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// NewPathError creates a new Error with path context.
func NewPathError(op, path string, kind *Kind, err error) *Error {
	return &Error{
		Op:   op,
		Path: path,
		Kind: kind,
		Err:  err,
	}
}

// NewValidationError creates an ErrInvalidInput error with a message.
func NewValidationError(message string) *Error {
	return &Error{
		Op:   "validate",
		Kind: ErrInvalidInput,
		Err:  errors.New(message),
	}
}

// CodeOf extracts the error code of the first *Error in the chain.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	var k *Kind
	if errors.As(err, &k) {
		return k.code
	}
	return CodeUnknown
}

// IsManifestError reports whether err aborts a session before any mutation.
func IsManifestError(err error) bool {
	return errors.Is(err, ErrManifestUnreachable) || errors.Is(err, ErrManifestInvalid)
}

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Is, As and Join are re-exported so callers importing this package under the
// name "errors" keep access to the standard helpers.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)
