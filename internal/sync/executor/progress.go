package executor

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

// recorder folds results into the outcome and drives the progress callback.
// It is only touched by the goroutine that called Apply.
type recorder struct {
	outcome  *patchtypes.Outcome
	index    int
	total    int
	progress patchtypes.ProgressFunc
	logger   *slog.Logger
}

func (r *recorder) record(res result) {
	o := r.outcome
	p := res.action.Path

	switch res.status {
	case patchtypes.StatusFetched:
		o.FilesFetched++
		o.BytesFetched += res.bytes
		r.logger.Info("file fetched", "path", p, "size", humanize.Bytes(uint64(res.bytes)))
	case patchtypes.StatusDeleted:
		o.FilesDeleted++
		r.logger.Info("deprecated file removed", "path", p)
	case patchtypes.StatusWarned:
		o.BytesFetched += res.bytes
		o.FilesWarned = append(o.FilesWarned, p)
		r.logger.Warn("file kept with warning", "path", p, "error", res.err)
	case patchtypes.StatusFailed:
		o.FilesFailed = append(o.FilesFailed, p)
		r.logger.Error("file action failed", "path", p, "error", res.err)
	}

	if res.err != nil {
		o.Errors = append(o.Errors, patchtypes.SyncError{
			Path:    p,
			Code:    string(perrors.CodeOf(res.err)),
			Message: res.err.Error(),
			Warning: res.status == patchtypes.StatusWarned,
			Err:     res.err,
		})
	}

	r.index++
	if r.progress != nil {
		r.progress(patchtypes.Progress{
			Index:  r.index,
			Total:  r.total,
			Path:   p,
			Status: res.status,
			Bytes:  o.BytesFetched,
			Err:    res.err,
		})
	}
}
