// Package sync implements installation synchronization.
// This includes probing local files, comparing them against a manifest,
// planning actions, and executing them with bounded concurrency.
//
// The sync package provides the implementation behind the public Check and
// Sync APIs.
package sync
