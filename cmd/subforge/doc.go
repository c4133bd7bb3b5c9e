// Package main hosts the subforge CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into batch runs against
// the extraction pipeline, one-off font and subtitle utilities, history
// queries, and configuration scaffolding. Configuration resolution, tool
// discovery, and logger setup live in the shared command context so each
// subcommand only wires flags to internal packages.
package main
