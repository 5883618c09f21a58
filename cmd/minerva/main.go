// Package main is the entry point for the minerva CLI.
//
// Usage:
//
//	minerva [flags] <command> [args]
//
// Commands:
//
//	serve    - Run the tutoring gateway (HTTP API, SSE and WebSocket turns)
//	chat     - Interactive tutoring session against a running server
//	mastery  - Mastery report for a user and lesson
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/edvora/minerva/cmd/minerva/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
