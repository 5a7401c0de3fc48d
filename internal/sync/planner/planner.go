// Package planner turns a manifest and a local installation into a Plan.
//
// Manifest entries are visited in manifest order and produce a Fetch or a
// NoOp each. The deprecated file list is then checked independently and every
// existing entry produces a Delete, except for paths the manifest lists: those
// are owned by the manifest and already planned. Planning never touches the
// filesystem beyond reading it.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"

	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/internal/sync/comparator"
	"github.com/printbeast/rngp-patcher/internal/sync/scanner"
	"github.com/printbeast/rngp-patcher/manifest"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

// Planner creates action plans for sync sessions.
type Planner struct {
	scanner    *scanner.Scanner
	comparator comparator.Comparator
	deprecated []string
	logger     *slog.Logger
}

// NewPlanner creates a new planner. deprecated is checked in order after the
// manifest entries.
func NewPlanner(
	sc *scanner.Scanner,
	comp comparator.Comparator,
	deprecated []string,
	logger *slog.Logger,
) *Planner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Planner{
		scanner:    sc,
		comparator: comp,
		deprecated: deprecated,
		logger:     logger,
	}
}

// Diff creates a plan bringing the install dir in line with m. The same tree
// and manifest always produce the same plan.
func (p *Planner) Diff(ctx context.Context, m *manifest.Manifest) (*patchtypes.Plan, error) {
	if m == nil {
		return nil, perrors.NewValidationError("manifest is required")
	}

	actions := make([]patchtypes.Action, 0, len(m.Files)+len(p.deprecated))

	for _, file := range m.Files {
		// Check if context is cancelled
		if err := ctx.Err(); err != nil {
			return nil, perrors.New("diff", perrors.ErrCancelled, err)
		}

		actions = append(actions, p.planFile(file))
	}

	deletes, err := p.planDeletes(ctx, m)
	if err != nil {
		return nil, err
	}
	actions = append(actions, deletes...)

	plan := &patchtypes.Plan{Actions: actions}
	if err := ValidatePlan(plan); err != nil {
		return nil, err
	}
	plan.Stats = Stats(plan)

	p.logger.Debug("plan created",
		"fetches", plan.Stats.Fetches,
		"deletes", plan.Stats.Deletes,
		"noops", plan.Stats.NoOps,
		"fetch_bytes", plan.Stats.FetchBytes)

	return plan, nil
}

// planFile decides between Fetch and NoOp for one manifest entry.
func (p *Planner) planFile(file manifest.FileDescriptor) patchtypes.Action {
	local := p.scanner.Probe(file.Path)
	verdict := p.comparator.Compare(local, file)

	if verdict.Err != nil {
		p.logger.Warn("local file unreadable, scheduling fetch",
			"path", file.Path,
			"error", verdict.Err)
	}

	if !verdict.Changed {
		return patchtypes.Action{
			Type:   patchtypes.ActionNoOp,
			Path:   file.Path,
			File:   file,
			Reason: verdict.Reason,
		}
	}

	return patchtypes.Action{
		Type:   patchtypes.ActionFetch,
		Path:   file.Path,
		File:   file,
		Reason: verdict.Reason,
	}
}

// planDeletes checks each deprecated path on its own. A path that cannot be
// inspected is still scheduled; the executor treats a missing file as done.
// Paths listed in m are skipped.
func (p *Planner) planDeletes(ctx context.Context, m *manifest.Manifest) ([]patchtypes.Action, error) {
	var actions []patchtypes.Action
	seen := mapset.NewThreadUnsafeSet[string]()

	for _, path := range p.deprecated {
		if err := ctx.Err(); err != nil {
			return nil, perrors.New("diff", perrors.ErrCancelled, err)
		}

		if !seen.Add(path) {
			continue
		}

		if _, listed := m.Lookup(path); listed {
			p.logger.Debug("deprecated path is listed in the manifest, not deleting", "path", path)
			continue
		}

		local := p.scanner.Probe(path)
		if local.Err != nil {
			p.logger.Warn("cannot inspect deprecated file, scheduling delete",
				"path", path,
				"error", local.Err)
		} else if !local.Exists {
			continue
		}

		actions = append(actions, patchtypes.Action{
			Type:   patchtypes.ActionDelete,
			Path:   path,
			Reason: patchtypes.ReasonDeprecated,
		})
	}

	return actions, nil
}

// Stats returns statistics about the planned actions.
func Stats(plan *patchtypes.Plan) patchtypes.PlanStats {
	stats := patchtypes.PlanStats{}

	for _, a := range plan.Actions {
		switch a.Type {
		case patchtypes.ActionFetch:
			stats.Fetches++
			if a.File.HasMetadata {
				stats.FetchBytes += a.File.Size
			}
		case patchtypes.ActionDelete:
			stats.Deletes++
		case patchtypes.ActionNoOp:
			stats.NoOps++
		}
	}

	return stats
}

// ValidatePlan checks that a plan is executable. Each path may be fetched or
// deleted at most once; a delete and a fetch on the same path are allowed
// because deletions run first.
func ValidatePlan(plan *patchtypes.Plan) error {
	if plan == nil {
		return perrors.NewValidationError("plan is required")
	}

	fetches := mapset.NewThreadUnsafeSet[string]()
	deletes := mapset.NewThreadUnsafeSet[string]()

	for _, a := range plan.Actions {
		if a.Path == "" {
			return perrors.NewValidationError(fmt.Sprintf("%s action without a path", a.Type))
		}

		switch a.Type {
		case patchtypes.ActionFetch:
			if !fetches.Add(a.Path) {
				return perrors.NewPathError("validate", a.Path, perrors.ErrInvalidInput,
					fmt.Errorf("path fetched more than once"))
			}
		case patchtypes.ActionDelete:
			if !deletes.Add(a.Path) {
				return perrors.NewPathError("validate", a.Path, perrors.ErrInvalidInput,
					fmt.Errorf("path deleted more than once"))
			}
		case patchtypes.ActionNoOp:
		default:
			return perrors.NewPathError("validate", a.Path, perrors.ErrInvalidInput,
				fmt.Errorf("unknown action type %q", a.Type))
		}
	}

	return nil
}
