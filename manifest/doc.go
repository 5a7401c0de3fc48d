// Package manifest parses patch manifests.
//
// A manifest is a single JSON document listing every file a patch installs:
//
//	{
//	  "version": "1.0.0",
//	  "patch_date": "2025-10-01",
//	  "description": "RNGP Server Patch v1.0.0",
//	  "files": [
//	    {"path": "maps/arena.eqg", "url": "maps/arena.eqg", "size": 5, "md5": "..."}
//	  ],
//	  "notes": ["..."]
//	}
//
// Parsing is strict about structure and lenient about extras: unknown fields
// are ignored, but a missing or non-array "files", duplicate paths, paths
// escaping the install root, half-present metadata and bad sizes all yield an
// error wrapping errors.ErrManifestInvalid.
package manifest
