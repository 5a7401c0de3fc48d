// Package errors provides the error taxonomy for the patch synchronization engine.
// Every failure carries a Kind with a stable string code, the operation that failed
// and, when relevant, the manifest path it concerns.
package errors

// ErrorCode represents a specific error condition in the patcher.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Session errors. These abort a sync before any file is touched.

	// CodeManifestUnreachable indicates the manifest could not be fetched or read.
	CodeManifestUnreachable ErrorCode = "MANIFEST_UNREACHABLE"

	// CodeManifestInvalid indicates the manifest is malformed or misses required fields.
	CodeManifestInvalid ErrorCode = "MANIFEST_INVALID"

	// CodeSigning indicates a request could not be signed, usually malformed credentials.
	CodeSigning ErrorCode = "SIGNING_ERROR"

	// Per-file errors. These are recorded and never abort the batch.

	// CodeDownloadFailed indicates a single object could not be fetched.
	CodeDownloadFailed ErrorCode = "DOWNLOAD_FAILED"

	// CodeDigestMismatch indicates a downloaded file does not match its manifest digest.
	CodeDigestMismatch ErrorCode = "DIGEST_MISMATCH"

	// CodeDeleteFailed indicates a deprecated file could not be removed.
	CodeDeleteFailed ErrorCode = "DELETE_FAILED"

	// CodeFilesystem indicates a local filesystem operation failed.
	CodeFilesystem ErrorCode = "FILESYSTEM_ERROR"

	// Transport errors.

	// CodeNotFound indicates the requested object does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeForbidden indicates the storage backend refused access.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Generic errors.

	// CodeInvalidInput indicates the provided input is invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeCancelled indicates the operation was cancelled by the caller.
	CodeCancelled ErrorCode = "CANCELLED"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
