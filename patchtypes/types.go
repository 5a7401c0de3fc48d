// Package patchtypes provides shared type definitions for the patcher.
package patchtypes

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/printbeast/rngp-patcher/credentials"
	"github.com/printbeast/rngp-patcher/fs"
	"github.com/printbeast/rngp-patcher/manifest"
)

// ActionType identifies what the executor does with a path.
type ActionType string

const (
	// ActionFetch downloads the file and verifies it
	ActionFetch ActionType = "fetch"

	// ActionDelete removes a deprecated file
	ActionDelete ActionType = "delete"

	// ActionNoOp leaves an up-to-date file alone
	ActionNoOp ActionType = "noop"
)

// Reasons attached to planned actions.
const (
	ReasonMissing      = "missing"
	ReasonModified     = "modified"
	ReasonUnverifiable = "unverifiable"
	ReasonUnreadable   = "unreadable"
	ReasonUnchanged    = "unchanged"
	ReasonDeprecated   = "deprecated"
	ReasonForced       = "forced"
)

// Action is one planned step. File is only set for ActionFetch and ActionNoOp.
type Action struct {
	Type   ActionType              `json:"type"`
	Path   string                  `json:"path"`
	File   manifest.FileDescriptor `json:"-"`
	Reason string                  `json:"reason"`
}

// Plan is the ordered result of diffing an install against a manifest.
// Manifest-derived actions come first, in manifest order, followed by
// deletions in deprecated-list order.
type Plan struct {
	Actions []Action  `json:"actions"`
	Stats   PlanStats `json:"stats"`
}

// PlanStats aggregates a plan for a pre-flight summary.
type PlanStats struct {
	// Fetches is the number of files to download
	Fetches int `json:"fetches"`

	// Deletes is the number of deprecated files to remove
	Deletes int `json:"deletes"`

	// NoOps is the number of files already up to date
	NoOps int `json:"noops"`

	// FetchBytes is the expected download size. Files without metadata count as zero.
	FetchBytes uint64 `json:"fetch_bytes"`
}

// Fetches returns the fetch actions in plan order.
func (p *Plan) Fetches() []Action {
	return p.filter(ActionFetch)
}

// Deletes returns the delete actions in plan order.
func (p *Plan) Deletes() []Action {
	return p.filter(ActionDelete)
}

// IsEmpty reports whether the plan changes nothing.
func (p *Plan) IsEmpty() bool {
	return p.Stats.Fetches == 0 && p.Stats.Deletes == 0
}

func (p *Plan) filter(t ActionType) []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// ActionStatus is the result of one executed action.
type ActionStatus string

const (
	// StatusFetched means the file was downloaded and verified
	StatusFetched ActionStatus = "fetched"

	// StatusWarned means the file was downloaded but failed verification
	StatusWarned ActionStatus = "warned"

	// StatusDeleted means a deprecated file was removed or already absent
	StatusDeleted ActionStatus = "deleted"

	// StatusFailed means the action did not complete
	StatusFailed ActionStatus = "failed"
)

// Progress is reported after each executed action.
type Progress struct {
	// Index counts completed actions, starting at 1
	Index int

	// Total is the number of fetch and delete actions in the plan
	Total int

	Path   string
	Status ActionStatus

	// Bytes is the cumulative number of bytes downloaded so far
	Bytes int64

	// Err is set for warned and failed actions
	Err error
}

// Fraction returns completion in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Index) / float64(p.Total)
}

// ProgressFunc receives progress on the goroutine that started the sync.
type ProgressFunc func(Progress)

// Status is the terminal state of a sync session.
type Status string

const (
	// StatusCompleted means every action ran; some may have warned or failed
	StatusCompleted Status = "completed"

	// StatusAborted means the session stopped before touching any file
	StatusAborted Status = "aborted"

	// StatusCancelled means the caller cancelled the session
	StatusCancelled Status = "cancelled"
)

// Outcome summarises an executed plan.
type Outcome struct {
	// Status is the terminal state of the session
	Status Status `json:"status"`

	// Reason explains an aborted or cancelled session
	Reason string `json:"reason,omitempty"`

	// FilesFetched is the number of files downloaded and verified
	FilesFetched int `json:"files_fetched"`

	// FilesDeleted is the number of deprecated files removed
	FilesDeleted int `json:"files_deleted"`

	// FilesWarned lists paths kept despite a failed verification or delete
	FilesWarned []string `json:"files_warned,omitempty"`

	// FilesFailed lists paths whose action did not complete
	FilesFailed []string `json:"files_failed,omitempty"`

	// BytesFetched is the total bytes written into the install dir
	BytesFetched int64 `json:"bytes_fetched"`

	// Errors holds one entry per warned or failed path, in completion order
	Errors []SyncError `json:"errors,omitempty"`

	// Duration is how long the session took
	Duration time.Duration `json:"duration"`
}

// SyncError represents a per-file problem recorded during a sync.
type SyncError struct {
	// Path is the manifest path concerned
	Path string `json:"path"`

	// Code is the error code
	Code string `json:"code"`

	// Message is the error message
	Message string `json:"message"`

	// Warning is true when the action still completed
	Warning bool `json:"warning"`

	// Err is the underlying error
	Err error `json:"-"`
}

// OK reports whether the session completed without warnings or failures.
func (o *Outcome) OK() bool {
	return o.Status == StatusCompleted && len(o.FilesWarned) == 0 && len(o.FilesFailed) == 0
}

// Summary is what a sync session returns.
type Summary struct {
	Manifest *manifest.Manifest
	Plan     *Plan
	Outcome  *Outcome
}

// ConnectionReport describes a storage connectivity check.
type ConnectionReport struct {
	ManifestBytes int                `json:"manifest_bytes"`
	Manifest      *manifest.Manifest `json:"-"`

	// FirstFile is the path of the probed file, empty for an empty manifest
	FirstFile      string `json:"first_file,omitempty"`
	FirstFileBytes int64  `json:"first_file_bytes"`

	// DigestChecked is false when the first file carries no metadata
	DigestChecked bool `json:"digest_checked"`
	DigestMatched bool `json:"digest_matched"`
}

// Backend selects the transport used for object keys.
type Backend string

const (
	// BackendHTTP signs requests itself and also serves direct URLs
	BackendHTTP Backend = "http"

	// BackendS3 uses the AWS SDK
	BackendS3 Backend = "s3"

	// BackendMinio uses minio-go
	BackendMinio Backend = "minio"
)

// Transport opens the content behind a locator. Locators are either object
// keys or direct http(s) URLs. The caller closes the body.
type Transport interface {
	Fetch(ctx context.Context, locator string) (io.ReadCloser, error)
}

// ClientConfig holds configuration for the patcher client.
type ClientConfig struct {
	// InstallDir is the root of the local installation
	InstallDir string

	// ManifestLocation is an object key, an http(s) URL or a file:// path
	ManifestLocation string

	// Credentials authenticate object-key requests. Zero means anonymous.
	Credentials credentials.Credentials

	// Backend selects the transport built when Transport is nil
	Backend Backend

	// Transport overrides the backend selection
	Transport Transport

	// BaseURL resolves unsigned object keys for the HTTP backend
	BaseURL string

	// EndpointURL overrides the computed endpoint for the SDK backends
	EndpointURL string

	// PathStyle addresses buckets as a path segment instead of a host label
	PathStyle bool

	// Insecure talks plain http to the storage endpoint
	Insecure bool

	// Timeout bounds every storage request
	Timeout time.Duration

	// Concurrency is the number of parallel downloads (1..8)
	Concurrency int

	// VerifyRetries is how many times a mismatching download is fetched again
	VerifyRetries int

	// DigestCacheSize is the number of cached file digests, 0 disables the cache
	DigestCacheSize int

	// Force fetches every manifest file regardless of its digest
	Force bool

	// DeprecatedFiles replaces the built-in deprecated file list when non-nil
	DeprecatedFiles []string

	// Filesystem overrides the OS filesystem rooted at InstallDir
	Filesystem fs.Filesystem

	// Logger receives structured logs
	Logger *slog.Logger

	// Progress receives per-action progress
	Progress ProgressFunc

	// Clock is used for request signing
	Clock func() time.Time
}

// Option is a functional option for configuring the patcher client.
type Option func(*ClientConfig)

// LocalFile describes what the scanner found at a manifest path.
type LocalFile struct {
	// Path is the manifest-relative path
	Path string

	// Exists is false when nothing is at Path
	Exists bool

	// IsDir is true when Path names a directory
	IsDir bool

	// Size is the file size in bytes
	Size int64

	// ModTime is the last modification time
	ModTime time.Time

	// Err is set when Path could not be inspected
	Err error
}
