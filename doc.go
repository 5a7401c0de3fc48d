// Package patcher keeps a local game installation in line with a remote
// patch manifest.
//
// A session loads the manifest, diffs the install dir against it by content
// digest, removes deprecated legacy files, and downloads every missing or
// modified file into place. Downloads are written to a temp file, verified
// and renamed, so an interrupted session never leaves a half-written file
// behind.
//
// Key features:
//   - Manifest from an object key, a direct URL or a local file
//   - SigV4-signed requests against S3-compatible storage, or the AWS SDK
//     and minio-go backends
//   - Bounded parallel downloads with per-file progress callbacks
//   - Per-file failures recorded in a structured Outcome, never fatal
//
// Example usage:
//
//	client, err := patcher.New(
//	    patcher.WithInstallDir("/games/eq"),
//	    patcher.WithManifestLocation("manifest.json"),
//	    patcher.WithCredentials(creds),
//	)
//	if err != nil {
//	    return err
//	}
//
//	summary, err := client.Sync(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("fetched %d files\n", summary.Outcome.FilesFetched)
package patcher
