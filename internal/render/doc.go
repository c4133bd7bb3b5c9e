// Package render turns an intermediate ASS subtitle into a PGS (.sup) bitmap
// stream with Spp2Pgs.
//
// The fonts the subtitle needs are registered with the OS font store for the
// duration of the renderer call and released on every return path. Success is
// judged by the renderer's printed completion marker, never by exit status
// alone.
package render
