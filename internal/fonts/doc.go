// Package fonts manages the fonts that travel with subtitle tracks.
//
// It dumps font attachments out of video containers, renames subset fonts to
// the real names recorded in the subtitles (rewriting each font's name table
// and remembering the result in a NameRegistry), and merges same-named subset
// fonts collected from several videos into one font per family with
// FontForge. A NameRegistry lives for exactly one batch.
package fonts
