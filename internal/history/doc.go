// Package history persists batch runs and per-video outcomes in SQLite.
//
// The Store implements batch.Recorder; the CLI reads it back for
// `subforge history`.
package history
