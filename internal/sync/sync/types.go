package sync

import "github.com/printbeast/rngp-patcher/patchtypes"

// Config holds configuration for a sync session.
type Config struct {
	// ManifestLocation is an object key, an http(s) URL or a file:// path
	ManifestLocation string

	// Progress receives per-action progress
	Progress patchtypes.ProgressFunc
}
