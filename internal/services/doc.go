// Package services defines shared utilities consumed by the extraction,
// font and batch packages.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, video paths, and track indices for
//     logging and history records.
//   - Structured error markers plus the Wrap helper that classify failures
//     (external tool, missing dependency, malformed asset, file system).
//   - A thin command abstraction that makes external tool execution testable.
//
// Use these helpers when wiring new pipeline steps so error reporting and
// observability stay uniform.
package services
