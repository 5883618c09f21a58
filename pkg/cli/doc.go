// Package cli provides common utilities for the minerva command-line tool.
//
// This package includes:
//   - Output formatting (YAML, JSON, raw) with an optional jq filter
//   - Request file loading (YAML/JSON)
//   - Terminal styles for the chat client
//
// Example usage:
//
//	// Output a result, filtered and formatted
//	cli.Output(report, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Query:  ".score",
//	})
package cli
