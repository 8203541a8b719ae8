// Package cmd implements the httpspy CLI commands using Cobra.
//
// Available commands:
//   - verify: Check recorded requests against an expectations file
//   - show: List recorded requests
//   - record: Run a reverse proxy that records requests
//   - validate: Check expectations files without evaluating them
//   - coverage: Match recordings against an OpenAPI document
//   - replay: Re-send recorded requests to another server
//   - init: Create a sample config and expectations file
//   - version: Show httpspy version information
//
// Recordings are read from .json, .yaml or .yml exports, or from a SQLite
// store given as sqlite:<path>.
package cmd
