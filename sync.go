package patcher

import (
	"context"

	"github.com/printbeast/rngp-patcher/internal/sync/sync"
	"github.com/printbeast/rngp-patcher/manifest"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

// LoadManifest fetches and parses the configured manifest.
//
// Errors:
//   - ErrManifestUnreachable: the manifest could not be read
//   - ErrManifestInvalid: the document is malformed or misses required fields
func (c *Client) LoadManifest(ctx context.Context) (*manifest.Manifest, error) {
	return c.manager.LoadManifest(ctx, c.config.ManifestLocation)
}

// Check loads the manifest and plans the session without touching the
// install dir. The returned Summary has no Outcome.
func (c *Client) Check(ctx context.Context) (*patchtypes.Summary, error) {
	return c.manager.Check(ctx, c.sessionConfig())
}

// Apply executes a plan obtained from Check. Per-file failures are reported
// in the Outcome; the error is non-nil only for an invalid plan or a
// cancelled context, in which case the Outcome is still returned when work
// had started.
func (c *Client) Apply(ctx context.Context, plan *patchtypes.Plan) (*patchtypes.Outcome, error) {
	return c.executor.Apply(ctx, plan, c.config.Progress)
}

// Sync runs a complete session: load the manifest, plan, remove deprecated
// files, then fetch and verify everything that differs.
//
// A manifest that cannot be fetched or parsed aborts the session before any
// file is touched; the Summary then carries an Aborted outcome next to the
// error.
//
// Example:
//
//	summary, err := client.Sync(ctx)
//	if err != nil {
//	    return fmt.Errorf("sync failed: %w", err)
//	}
//	for _, e := range summary.Outcome.Errors {
//	    log.Printf("%s: %s", e.Path, e.Message)
//	}
func (c *Client) Sync(ctx context.Context) (*patchtypes.Summary, error) {
	return c.manager.Sync(ctx, c.sessionConfig())
}

func (c *Client) sessionConfig() *sync.Config {
	return &sync.Config{
		ManifestLocation: c.config.ManifestLocation,
		Progress:         c.config.Progress,
	}
}
