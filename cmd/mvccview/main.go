// Package main provides the entry point for the mvccview dashboard CLI.
package main

import (
	"fmt"
	"io"
	"os"
)

// Standard streams, replaced in tests.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	exitCode := run(os.Args)
	os.Exit(exitCode)
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 1
	}

	switch args[1] {
	case "watch":
		return watchCmd(args[2:])
	case "serve":
		return serveCmd(args[2:])
	case "snapshot":
		return snapshotCmd(args[2:])
	case "chain":
		return chainCmd(args[2:])
	case "compare":
		return compareCmd(args[2:])
	case "trx":
		return trxCmd(args[2:])
	case "row":
		return rowCmd(args[2:])
	case "reset":
		return resetCmd(args[2:])
	case "config":
		return configCmd(args[2:])
	case "hash-password":
		return hashPasswordCmd(args[2:])
	case "version":
		return versionCmd(args[2:])
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		fmt.Fprintln(stderr, "Run 'mvccview help' for usage.")
		return 1
	}
}
