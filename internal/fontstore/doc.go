// Package fontstore temporarily registers fonts with the operating system so
// an external renderer can see them.
//
// A Registrar installs every font of a directory that the store does not
// already list and returns a Handle. Releasing the handle removes exactly the
// entries it installed, deletes the copied files, and broadcasts a font change
// notification. A per-user file lock is held between Register and Release so
// concurrent subforge processes never interleave store mutations.
//
// Windows uses the Fonts registry keys and the per-user font directory; other
// platforms use the fontconfig user directory and fc-cache. MemoryStore backs
// tests and dry runs.
package fontstore
