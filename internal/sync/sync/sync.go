// Package sync provides the main sync orchestration logic.
//
// A session is read-then-act: the manifest is loaded and validated, the
// install dir is diffed against it, and only then is the plan applied.
// A manifest that cannot be fetched or parsed aborts the session before any
// file is touched.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/internal/sync/executor"
	"github.com/printbeast/rngp-patcher/internal/sync/planner"
	"github.com/printbeast/rngp-patcher/manifest"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

// Manager coordinates the phases of a sync session:
// 1. Load: fetch and parse the manifest
// 2. Diff: compare the install dir and plan actions
// 3. Apply: delete deprecated files, then fetch and verify
type Manager struct {
	fetcher  manifest.Fetcher
	planner  *planner.Planner
	executor *executor.Executor
	logger   *slog.Logger
}

// NewManager creates a new sync manager with the provided components.
func NewManager(
	fetcher manifest.Fetcher,
	pl *planner.Planner,
	ex *executor.Executor,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		fetcher:  fetcher,
		planner:  pl,
		executor: ex,
		logger:   logger,
	}
}

// LoadManifest fetches and parses the manifest at location.
func (sm *Manager) LoadManifest(ctx context.Context, location string) (*manifest.Manifest, error) {
	m, err := manifest.Load(ctx, sm.fetcher, location)
	if err != nil {
		return nil, err
	}

	sm.logger.Info("manifest loaded",
		"location", location,
		"version", m.Version,
		"files", m.Len(),
		"size", humanize.Bytes(m.TotalSize()))
	return m, nil
}

// Check loads the manifest and diffs the install dir without changing it.
func (sm *Manager) Check(ctx context.Context, cfg *Config) (*patchtypes.Summary, error) {
	m, err := sm.LoadManifest(ctx, cfg.ManifestLocation)
	if err != nil {
		return nil, err
	}

	plan, err := sm.planner.Diff(ctx, m)
	if err != nil {
		return nil, err
	}

	sm.logger.Info("install checked",
		"fetches", plan.Stats.Fetches,
		"deletes", plan.Stats.Deletes,
		"up_to_date", plan.Stats.NoOps,
		"download", humanize.Bytes(plan.Stats.FetchBytes))

	return &patchtypes.Summary{Manifest: m, Plan: plan}, nil
}

// Sync runs a complete session. Failures before the apply phase, such as an
// unreachable or invalid manifest, produce an Aborted outcome alongside the
// error and leave the install dir untouched.
func (sm *Manager) Sync(ctx context.Context, cfg *Config) (*patchtypes.Summary, error) {
	startTime := time.Now()

	summary, err := sm.Check(ctx, cfg)
	if err != nil {
		status := patchtypes.StatusAborted
		if perrors.Is(err, perrors.ErrCancelled) {
			status = patchtypes.StatusCancelled
		}
		sm.logger.Error("sync stopped before applying", "status", status, "error", err)
		return &patchtypes.Summary{
			Outcome: &patchtypes.Outcome{
				Status:   status,
				Reason:   err.Error(),
				Duration: time.Since(startTime),
			},
		}, err
	}

	outcome, err := sm.executor.Apply(ctx, summary.Plan, cfg.Progress)
	if outcome != nil {
		outcome.Duration = time.Since(startTime)
	}
	summary.Outcome = outcome
	if err != nil {
		return summary, err
	}

	sm.logger.Info("sync completed",
		"fetched", outcome.FilesFetched,
		"deleted", outcome.FilesDeleted,
		"warned", len(outcome.FilesWarned),
		"failed", len(outcome.FilesFailed),
		"downloaded", humanize.Bytes(uint64(outcome.BytesFetched)),
		"duration", outcome.Duration)

	return summary, nil
}
