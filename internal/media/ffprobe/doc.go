// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual video/subtitle/attachment stream properties
//   - Format: container-level metadata
//
// Primary entry points are Inspect, which executes ffprobe, and Parse, which
// decodes an existing JSON payload. Helper methods expose subtitle streams,
// language tags, and frame rates.
package ffprobe
