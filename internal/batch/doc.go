// Package batch runs extraction batches on a single background worker.
//
// A Coordinator owns the task queue. RunBatch enqueues the selected videos
// and returns a Run immediately; the worker processes videos in selection
// order and tracks in stream order, streams one VideoOutcome per video, then
// runs the cross-video font merge and clears the font name registry.
package batch
