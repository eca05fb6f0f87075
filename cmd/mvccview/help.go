package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `mvccview - live dashboard for an MVCC storage engine

Usage:
  mvccview <command> [options]

Commands:
  watch          Interactive terminal dashboard (also serves the API)
  serve          Poll the engine and serve the dashboard API, headless
  snapshot       Print the engine's current state
  chain          Print a row's version chain
  compare        Print a side-by-side visibility comparison
  trx            Begin, commit or roll back a transaction
  row            Read, insert, update or delete a row
  reset          Reset the engine
  config         Configuration management
  hash-password  Hash a dashboard API password
  version        Show version information

Use "mvccview <command> -h" for more information about a command.
`)
}

// printCommonOptions prints the options shared by commands that reach the engine.
func printCommonOptions(w io.Writer) {
	fmt.Fprint(w, `  -config string
        Path to configuration file
  -engine string
        Engine API base URL (overrides config)
  -h, -help
        Show this help message
`)
}

// printWatchUsage prints the watch command usage.
func printWatchUsage(w io.Writer) {
	fmt.Fprint(w, `Interactive terminal dashboard

Usage:
  mvccview watch [options]

Options:
  -interval duration
        Poll interval (overrides config)
  -no-api
        Do not start the dashboard API
`)
	printCommonOptions(w)
}

// printServeUsage prints the serve command usage.
func printServeUsage(w io.Writer) {
	fmt.Fprint(w, `Poll the engine and serve the dashboard API

Usage:
  mvccview serve [options]

Options:
  -address string
        Dashboard API listen address (overrides config)
  -interval duration
        Poll interval (overrides config)
  -log-level string
        Log level: debug, info, warn, error (overrides config)
`)
	printCommonOptions(w)
	fmt.Fprint(w, `
Environment Variables:
  MVCCVIEW_ENGINE_URL              Override engine API base URL
  MVCCVIEW_SYNC_INTERVAL           Override poll interval
  MVCCVIEW_DASHBOARD_ADDRESS       Override dashboard API listen address
  MVCCVIEW_DASHBOARD_PASSWORD_HASH Override dashboard API password hash
  MVCCVIEW_LOGGING_LEVEL           Override log level

Signals:
  SIGHUP   Reload the configuration file
`)
}

// printSnapshotUsage prints the snapshot command usage.
func printSnapshotUsage(w io.Writer) {
	fmt.Fprint(w, `Print the engine's current state

Usage:
  mvccview snapshot [options]

Options:
  -json
        Print the raw snapshot as JSON
`)
	printCommonOptions(w)
}

// printChainUsage prints the chain command usage.
func printChainUsage(w io.Writer) {
	fmt.Fprint(w, `Print a row's version chain, newest version first

Usage:
  mvccview chain -row <id> [options]

Options:
  -row int
        Row id (required)
  -json
        Print the chain as JSON
`)
	printCommonOptions(w)
}

// printCompareUsage prints the compare command usage.
func printCompareUsage(w io.Writer) {
	fmt.Fprint(w, `Print what two transactions can see, side by side

Usage:
  mvccview compare [-a <trx> -b <trx>] [options]

Without -a and -b the first two active transactions are compared.

Options:
  -a int
        Left transaction id
  -b int
        Right transaction id
  -json
        Print the comparison as JSON
  -width int
        Output width (default 120)
`)
	printCommonOptions(w)
}

// printTrxUsage prints the trx command usage.
func printTrxUsage(w io.Writer) {
	fmt.Fprint(w, `Transaction control

Usage:
  mvccview trx <subcommand> [options]

Subcommands:
  begin       Begin a transaction (-isolation READ_COMMITTED|REPEATABLE_READ)
  commit      Commit a transaction (-trx <id>)
  rollback    Roll back a transaction (-trx <id>)

Use "mvccview trx <subcommand> -h" for more information.
`)
}

// printRowUsage prints the row command usage.
func printRowUsage(w io.Writer) {
	fmt.Fprint(w, `Row reads and mutations

Usage:
  mvccview row <subcommand> [options]

Subcommands:
  read        Read a row under a transaction's snapshot (-trx <id> -row <id>)
  insert      Insert a row (-trx <id> -data <json>)
  update      Update a row (-trx <id> -row <id> -data <json>)
  delete      Delete a row (-trx <id> -row <id>)

Use "mvccview row <subcommand> -h" for more information.
`)
}

// printConfigUsage prints the config command usage.
func printConfigUsage(w io.Writer) {
	fmt.Fprint(w, `Configuration management

Usage:
  mvccview config <subcommand> [options]

Subcommands:
  validate    Validate configuration file
  init        Generate default configuration
  show        Show effective configuration

Use "mvccview config <subcommand> -h" for more information.
`)
}

// printHashPasswordUsage prints the hash-password command usage.
func printHashPasswordUsage(w io.Writer) {
	fmt.Fprint(w, `Hash a password for dashboard.passwordHash

Usage:
  mvccview hash-password [options]

The password is read from -password or, if omitted, from the first line of
standard input.

Options:
  -password string
        Password to hash
  -cost int
        bcrypt cost (default 10)
  -h, -help
        Show this help message
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  mvccview version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}
