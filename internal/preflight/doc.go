// Package preflight checks the directories and external tools a run needs
// before any work starts.
//
// The CLI runs RunAll before `subforge extract` so an unwritable output
// directory aborts the command instead of failing every video, and
// `subforge deps` renders CheckSystemDeps.
package preflight
