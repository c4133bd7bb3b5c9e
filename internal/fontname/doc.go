// Package fontname reads and rewrites the naming table of TrueType and
// OpenType fonts.
//
// Fonts embedded in subtitle releases are usually glyph subsets whose names
// were replaced by random identifiers. Rename puts a real name back into
// every record that carries the identifier and returns a Snapshot of the
// resulting table; Restore writes a snapshot into another file (typically the
// product of merging several subsets). Bytes re-serializes the font with
// recomputed table checksums so the result loads in font stores that verify
// them.
package fontname
