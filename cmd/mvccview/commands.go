package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/KilimcininKorOglu/mvccview/internal/backend"
	"github.com/KilimcininKorOglu/mvccview/internal/chain"
	"github.com/KilimcininKorOglu/mvccview/internal/compare"
	"github.com/KilimcininKorOglu/mvccview/internal/config"
	"github.com/KilimcininKorOglu/mvccview/internal/engine"
	"github.com/KilimcininKorOglu/mvccview/internal/logging"
	"github.com/KilimcininKorOglu/mvccview/internal/model"
	"github.com/KilimcininKorOglu/mvccview/internal/render"
)

// engineFlags are the flags shared by commands that reach the engine.
type engineFlags struct {
	configFile *string
	engineURL  *string
	help       *bool
	helpLong   *bool
}

func addEngineFlags(fs *flag.FlagSet) *engineFlags {
	return &engineFlags{
		configFile: fs.String("config", "", "Path to configuration file"),
		engineURL:  fs.String("engine", "", "Engine API base URL"),
		help:       fs.Bool("h", false, "Show help message"),
		helpLong:   fs.Bool("help", false, "Show help message"),
	}
}

func (f *engineFlags) wantsHelp() bool {
	return *f.help || *f.helpLong
}

// connect loads the effective configuration and builds an engine client.
func (f *engineFlags) connect() (*engine.Client, *config.Config, logging.Logger, error) {
	cfg, err := loadConfig(*f.configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if *f.engineURL != "" {
		cfg.Engine.URL = *f.engineURL
	}
	logger := cliLogger(cfg)
	client, err := engine.New(cfg.Engine.URL, cfg.Engine.Timeout, engine.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	return client, cfg, logger, nil
}

// cliLogger logs warnings and errors to stderr for one-shot commands.
func cliLogger(cfg *config.Config) logging.Logger {
	level := logging.ParseLevel(cfg.Logging.Level)
	if level < logging.LevelWarn {
		level = logging.LevelWarn
	}
	return logging.NewWithWriter(stderr, level, logging.ParseFormat(cfg.Logging.Format))
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printJSON(v interface{}) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "Failed to encode output: %v\n", err)
		return 1
	}
	return 0
}

// describeError renders err for a terminal, preferring the engine's own
// message for rejected operations.
func describeError(err error) string {
	var ee *engine.EngineError
	if errors.As(err, &ee) && ee.Message != "" {
		return ee.Message
	}
	return err.Error()
}

// snapshotCmd handles the snapshot command.
func snapshotCmd(args []string) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ef := addEngineFlags(fs)
	asJSON := fs.Bool("json", false, "Print the raw snapshot as JSON")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if ef.wantsHelp() {
		printSnapshotUsage(stdout)
		return 0
	}

	client, cfg, _, err := ef.connect()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := interruptContext()
	defer cancel()

	snap, err := client.GetSnapshot(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to fetch snapshot: %v\n", err)
		return 1
	}
	if *asJSON {
		return printJSON(snap)
	}

	d := render.BuildDashboard(snap, snap.RecentCommitted(cfg.Sync.HistoryLimit), nil)
	fmt.Fprintln(stdout, render.New(0).Dashboard(d))
	return 0
}

// chainCmd handles the chain command.
func chainCmd(args []string) int {
	fs := flag.NewFlagSet("chain", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ef := addEngineFlags(fs)
	rowID := fs.Int64("row", 0, "Row id")
	asJSON := fs.Bool("json", false, "Print the chain as JSON")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if ef.wantsHelp() {
		printChainUsage(stdout)
		return 0
	}
	if *rowID <= 0 {
		fmt.Fprintln(stderr, "Error: -row is required")
		return 1
	}

	client, _, logger, err := ef.connect()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := interruptContext()
	defer cancel()

	row := model.RowID(*rowID)
	be := backend.New(client, backend.Options{Logger: logger})
	view, err := be.ShowChain(ctx, row)
	switch {
	case errors.Is(err, chain.ErrNoHistory):
		fmt.Fprintf(stderr, "Row %d has no version history\n", row)
		return 1
	case errors.Is(err, engine.ErrNotFound):
		fmt.Fprintf(stderr, "Row %d not found\n", row)
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "Failed to load chain: %v\n", err)
		return 1
	}

	if *asJSON {
		return printJSON(view)
	}
	fmt.Fprintln(stdout, render.New(0).Chain(view))
	return 0
}

// compareCmd handles the compare command.
func compareCmd(args []string) int {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ef := addEngineFlags(fs)
	a := fs.Int64("a", 0, "Left transaction id")
	b := fs.Int64("b", 0, "Right transaction id")
	asJSON := fs.Bool("json", false, "Print the comparison as JSON")
	width := fs.Int("width", 120, "Output width")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if ef.wantsHelp() {
		printCompareUsage(stdout)
		return 0
	}
	if (*a == 0) != (*b == 0) {
		fmt.Fprintln(stderr, "Error: -a and -b must be given together")
		return 1
	}

	client, cfg, logger, err := ef.connect()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := interruptContext()
	defer cancel()

	be := backend.New(client, backend.Options{
		MaxConcurrency: cfg.Compare.MaxConcurrency,
		Logger:         logger,
	})
	if _, err := be.Poll(ctx); err != nil {
		fmt.Fprintf(stderr, "Failed to fetch snapshot: %v\n", err)
		return 1
	}

	var cmp *compare.Comparison
	if *a == 0 {
		cmp, err = be.CompareDefault(ctx)
	} else {
		cmp, err = be.Compare(ctx, model.TrxID(*a), model.TrxID(*b))
	}
	if err != nil {
		fmt.Fprintf(stderr, "Compare failed: %v\n", describeError(err))
		return 1
	}

	if *asJSON {
		return printJSON(cmp)
	}
	fmt.Fprintln(stdout, render.New(*width).Comparison(cmp))
	return 0
}

// trxCmd handles the trx command.
func trxCmd(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printTrxUsage(stdout)
		return 0
	}

	fs := flag.NewFlagSet("trx "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	ef := addEngineFlags(fs)
	isolation := fs.String("isolation", model.ReadCommitted, "Isolation level for begin")
	trxID := fs.Int64("trx", 0, "Transaction id for commit and rollback")

	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if ef.wantsHelp() {
		printTrxUsage(stdout)
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		printCommonOptions(stdout)
		return 0
	}

	switch args[0] {
	case "begin":
		switch *isolation {
		case model.ReadCommitted, model.RepeatableRead:
		default:
			fmt.Fprintf(stderr, "Error: unknown isolation level %q\n", *isolation)
			return 1
		}
	case "commit", "rollback":
		if *trxID <= 0 {
			fmt.Fprintln(stderr, "Error: -trx is required")
			return 1
		}
	default:
		fmt.Fprintf(stderr, "Unknown trx subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, "Run 'mvccview trx help' for usage.")
		return 1
	}

	client, _, _, err := ef.connect()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := interruptContext()
	defer cancel()

	trx := model.TrxID(*trxID)
	switch args[0] {
	case "begin":
		t, err := client.BeginTransaction(ctx, *isolation)
		if err != nil {
			fmt.Fprintf(stderr, "Begin failed: %s\n", describeError(err))
			return 1
		}
		fmt.Fprintf(stdout, "Transaction %d started (%s)\n", t.ID, t.IsolationLevel)
	case "commit":
		if err := client.CommitTransaction(ctx, trx); err != nil {
			fmt.Fprintf(stderr, "Commit failed: %s\n", describeError(err))
			return 1
		}
		fmt.Fprintf(stdout, "Transaction %d committed\n", trx)
	case "rollback":
		if err := client.RollbackTransaction(ctx, trx); err != nil {
			fmt.Fprintf(stderr, "Rollback failed: %s\n", describeError(err))
			return 1
		}
		fmt.Fprintf(stdout, "Transaction %d rolled back\n", trx)
	}
	return 0
}

// rowCmd handles the row command.
func rowCmd(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printRowUsage(stdout)
		return 0
	}

	fs := flag.NewFlagSet("row "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	ef := addEngineFlags(fs)
	trxID := fs.Int64("trx", 0, "Transaction id")
	rowID := fs.Int64("row", 0, "Row id for read, update and delete")
	rawData := fs.String("data", "", "Row data as a JSON object")

	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if ef.wantsHelp() {
		printRowUsage(stdout)
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		printCommonOptions(stdout)
		return 0
	}

	sub := args[0]
	if sub != "read" && sub != "insert" && sub != "update" && sub != "delete" {
		fmt.Fprintf(stderr, "Unknown row subcommand: %s\n", sub)
		fmt.Fprintln(stderr, "Run 'mvccview row help' for usage.")
		return 1
	}
	if *trxID <= 0 {
		fmt.Fprintln(stderr, "Error: -trx is required")
		return 1
	}
	if sub != "insert" && *rowID <= 0 {
		fmt.Fprintln(stderr, "Error: -row is required")
		return 1
	}

	var data model.Data
	if sub == "insert" || sub == "update" {
		if *rawData == "" {
			fmt.Fprintln(stderr, "Error: -data is required")
			return 1
		}
		if err := json.Unmarshal([]byte(*rawData), &data); err != nil || data == nil {
			fmt.Fprintln(stderr, "Error: -data must be a JSON object")
			return 1
		}
	}

	client, _, _, err := ef.connect()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := interruptContext()
	defer cancel()

	trx, row := model.TrxID(*trxID), model.RowID(*rowID)
	switch sub {
	case "read":
		vis, err := client.CheckVisibility(ctx, trx, row)
		if err != nil {
			fmt.Fprintf(stderr, "Read failed: %s\n", describeError(err))
			return 1
		}
		if !vis.Visible {
			fmt.Fprintf(stdout, "Row %d is not visible to transaction %d\n", row, trx)
			return 0
		}
		fmt.Fprintf(stdout, "Row %d read by transaction %d: %s\n", row, trx, render.FormatData(vis.Data))
	case "insert":
		id, err := client.InsertRow(ctx, trx, data)
		if err != nil {
			fmt.Fprintf(stderr, "Insert failed: %s\n", describeError(err))
			return 1
		}
		fmt.Fprintf(stdout, "Row %d inserted by transaction %d\n", id, trx)
	case "update":
		if err := client.UpdateRow(ctx, trx, row, data); err != nil {
			fmt.Fprintf(stderr, "Update failed: %s\n", describeError(err))
			return 1
		}
		fmt.Fprintf(stdout, "Row %d updated by transaction %d\n", row, trx)
	case "delete":
		if err := client.DeleteRow(ctx, trx, row); err != nil {
			fmt.Fprintf(stderr, "Delete failed: %s\n", describeError(err))
			return 1
		}
		fmt.Fprintf(stdout, "Row %d deleted by transaction %d\n", row, trx)
	}
	return 0
}

// resetCmd handles the reset command.
func resetCmd(args []string) int {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ef := addEngineFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if ef.wantsHelp() {
		fmt.Fprintln(stdout, "Reset the engine to its initial state")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Usage:")
		fmt.Fprintln(stdout, "  mvccview reset [options]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		printCommonOptions(stdout)
		return 0
	}

	client, _, _, err := ef.connect()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := interruptContext()
	defer cancel()

	if err := client.ResetSystem(ctx); err != nil {
		fmt.Fprintf(stderr, "Reset failed: %s\n", describeError(err))
		return 1
	}
	fmt.Fprintln(stdout, "System reset")
	return 0
}

// hashPasswordCmd handles the hash-password command.
func hashPasswordCmd(args []string) int {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(stderr)

	password := fs.String("password", "", "Password to hash")
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printHashPasswordUsage(stdout)
		return 0
	}

	pw := *password
	if pw == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(stderr, "Error: no password given")
			return 1
		}
		pw = strings.TrimRight(line, "\r\n")
	}
	if pw == "" {
		fmt.Fprintln(stderr, "Error: password must not be empty")
		return 1
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pw), *cost)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to hash password: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(hash))
	return 0
}
