// Package app wires driven adapters into the core services.
//
// New builds everything from settings for the CLI, HTTP and MCP surfaces.
// Assemble takes already-built adapters and is what tests use.
package app
