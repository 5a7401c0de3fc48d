// Package executor applies a Plan to the install dir.
//
// Deletions run first and sequentially. Fetches then run on a bounded worker
// pool; every download is streamed into a temp file next to its target,
// verified from disk and renamed into place, so a target path is never left
// half-written. Per-file failures are recorded and never stop the batch.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/printbeast/rngp-patcher/digest"
	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/fs"
	"github.com/printbeast/rngp-patcher/internal/sync/planner"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

const (
	// DefaultConcurrency is the number of parallel downloads when unset
	DefaultConcurrency = 1

	// MaxConcurrency caps parallel downloads
	MaxConcurrency = 8

	tempPrefix = ".patch-"
)

// Config holds the dependencies of an Executor.
type Config struct {
	Filesystem    fs.Filesystem
	Transport     patchtypes.Transport
	Hasher        *digest.Hasher
	Concurrency   int
	VerifyRetries int
	Logger        *slog.Logger
}

// Executor applies plans.
type Executor struct {
	filesystem    fs.Filesystem
	transport     patchtypes.Transport
	hasher        *digest.Hasher
	concurrency   int
	verifyRetries int
	logger        *slog.Logger
}

// NewExecutor creates an executor. Concurrency is clamped to 1..MaxConcurrency.
func NewExecutor(cfg Config) *Executor {
	concurrency := cfg.Concurrency
	switch {
	case concurrency <= 0:
		concurrency = DefaultConcurrency
	case concurrency > MaxConcurrency:
		concurrency = MaxConcurrency
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = digest.NewHasher(nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	retries := cfg.VerifyRetries
	if retries < 0 {
		retries = 0
	}

	return &Executor{
		filesystem:    cfg.Filesystem,
		transport:     cfg.Transport,
		hasher:        hasher,
		concurrency:   concurrency,
		verifyRetries: retries,
		logger:        logger,
	}
}

// Concurrency returns the effective number of parallel downloads.
func (e *Executor) Concurrency() int {
	return e.concurrency
}

// result is what a single action reports back to the calling goroutine.
type result struct {
	action patchtypes.Action
	status patchtypes.ActionStatus
	bytes  int64
	err    error
}

// Apply executes plan. progress, when non-nil, is called on the calling
// goroutine after every fetch and delete. The returned error is non-nil only
// for an invalid plan or a cancelled context; per-file problems live in the
// Outcome.
func (e *Executor) Apply(
	ctx context.Context,
	plan *patchtypes.Plan,
	progress patchtypes.ProgressFunc,
) (*patchtypes.Outcome, error) {
	startTime := time.Now()

	if err := planner.ValidatePlan(plan); err != nil {
		return nil, err
	}

	deletes := plan.Deletes()
	fetches := plan.Fetches()

	rec := &recorder{
		outcome:  &patchtypes.Outcome{Status: patchtypes.StatusCompleted},
		total:    len(deletes) + len(fetches),
		progress: progress,
		logger:   e.logger,
	}

	for _, a := range deletes {
		if ctx.Err() != nil {
			break
		}
		rec.record(e.delete(a))
	}

	if ctx.Err() == nil && len(fetches) > 0 {
		e.runFetches(ctx, fetches, rec)
	}

	outcome := rec.outcome
	outcome.Duration = time.Since(startTime)

	if err := ctx.Err(); err != nil {
		outcome.Status = patchtypes.StatusCancelled
		outcome.Reason = err.Error()
		e.logger.Warn("sync cancelled",
			"completed", rec.index,
			"total", rec.total)
		return outcome, perrors.New("apply", perrors.ErrCancelled, err)
	}

	return outcome, nil
}

// runFetches feeds fetches to a bounded pool. Workers hand their results to
// the calling goroutine, which owns the outcome and the progress callback.
func (e *Executor) runFetches(ctx context.Context, fetches []patchtypes.Action, rec *recorder) {
	results := make(chan result)

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	go func() {
		defer close(results)
		for _, a := range fetches {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				results <- e.fetch(ctx, a)
				return nil
			})
		}
		_ = g.Wait()
	}()

	for r := range results {
		rec.record(r)
	}
}

// delete removes a deprecated file. A file that is already gone counts as
// deleted.
func (e *Executor) delete(a patchtypes.Action) result {
	err := e.filesystem.Remove(a.Path)
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return result{
			action: a,
			status: patchtypes.StatusWarned,
			err:    perrors.NewPathError("delete", a.Path, perrors.ErrDeleteFailed, err),
		}
	}

	e.hasher.Forget(a.Path)
	return result{action: a, status: patchtypes.StatusDeleted}
}

// fetch downloads, verifies and installs one file.
func (e *Executor) fetch(ctx context.Context, a patchtypes.Action) result {
	dir := path.Dir(a.Path)
	if dir != "." {
		if err := e.filesystem.MkdirAll(dir, 0o755); err != nil {
			return failed(a, perrors.NewPathError("fetch", a.Path, perrors.ErrFilesystem, err))
		}
	}

	attempts := 1 + e.verifyRetries
	for attempt := 1; ; attempt++ {
		tmp, n, sum, err := e.download(ctx, a, dir)
		if err != nil {
			return failed(a, err)
		}

		verified := !a.File.HasMetadata || digest.Equal(sum, a.File.Digest)
		if !verified && attempt < attempts {
			e.logger.Warn("digest mismatch, retrying download",
				"path", a.Path,
				"attempt", attempt,
				"expected", a.File.Digest,
				"actual", sum)
			e.removeTemp(tmp)
			continue
		}

		if err := e.filesystem.Rename(tmp, a.Path); err != nil {
			e.removeTemp(tmp)
			return failed(a, perrors.NewPathError("fetch", a.Path, perrors.ErrFilesystem, err))
		}
		e.hasher.Forget(a.Path)

		if !verified {
			return result{
				action: a,
				status: patchtypes.StatusWarned,
				bytes:  n,
				err: perrors.NewPathError("verify", a.Path, perrors.ErrDigestMismatch,
					fmt.Errorf("expected %s, got %s", a.File.Digest, sum)),
			}
		}
		return result{action: a, status: patchtypes.StatusFetched, bytes: n}
	}
}

// download streams the object into a temp file in dir and hashes it back
// from disk. On error the temp file is already removed.
func (e *Executor) download(ctx context.Context, a patchtypes.Action, dir string) (string, int64, string, error) {
	body, err := e.transport.Fetch(ctx, a.File.Locator)
	if err != nil {
		return "", 0, "", e.fetchError(ctx, a, err)
	}
	defer func() {
		_ = body.Close()
	}()

	tmp, err := e.filesystem.TempFile(dir, tempPrefix+path.Base(a.Path)+"-")
	if err != nil {
		return "", 0, "", perrors.NewPathError("fetch", a.Path, perrors.ErrFilesystem, err)
	}
	name := tmp.Name()

	n, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		e.removeTemp(name)
		return "", 0, "", e.fetchError(ctx, a, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		e.removeTemp(name)
		return "", 0, "", perrors.NewPathError("fetch", a.Path, perrors.ErrFilesystem, err)
	}
	if err := tmp.Close(); err != nil {
		e.removeTemp(name)
		return "", 0, "", perrors.NewPathError("fetch", a.Path, perrors.ErrFilesystem, err)
	}

	sum, err := e.hashTemp(name, a.File.Algorithm())
	if err != nil {
		e.removeTemp(name)
		return "", 0, "", perrors.NewPathError("verify", a.Path, perrors.ErrFilesystem, err)
	}

	return name, n, sum, nil
}

func (e *Executor) hashTemp(name string, alg digest.Algorithm) (string, error) {
	f, err := e.filesystem.Open(name)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	return digest.Reader(f, alg)
}

func (e *Executor) fetchError(ctx context.Context, a patchtypes.Action, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return perrors.NewPathError("fetch", a.Path, perrors.ErrCancelled, ctxErr)
	}
	return perrors.NewPathError("fetch", a.Path, perrors.ErrDownloadFailed, err)
}

func (e *Executor) removeTemp(name string) {
	if err := e.filesystem.Remove(name); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		e.logger.Warn("failed to remove temp file", "path", name, "error", err)
	}
}

func failed(a patchtypes.Action, err error) result {
	return result{action: a, status: patchtypes.StatusFailed, err: err}
}
