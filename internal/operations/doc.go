// Package operations reports the progress of long-running pipeline work.
//
// A ProgressTracker counts units of work for one stage (detect, build,
// aggregate) and pushes a Progress snapshot to an optional ProgressFunc after
// every update. Trackers are safe for concurrent use, so parallel batch
// workers can advance a shared tracker.
package operations
