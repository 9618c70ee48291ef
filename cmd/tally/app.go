package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/bobmcallan/tally/internal/app"
	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "path to tally.toml (defaults to TALLY_CONFIG, then tally.toml beside the binary)")
var userID = flag.String("user", common.DefaultUserID, "user whose accounts are addressed")

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&accountsCmd{}, "ledger")
	c.Register(&balanceCmd{}, "ledger")
	c.Register(&snapshotsCmd{}, "ledger")

	c.Register(&anchorCmd{}, "anchors")
	c.Register(&unanchorCmd{}, "anchors")

	c.Register(&recomputeCmd{}, "maintenance")
	c.Register(&rebuildCmd{}, "maintenance")

	c.Register(&versionCmd{}, "")
}

// openApp initializes the App and scopes ctx to the -user flag.
func openApp(ctx context.Context) (*app.App, context.Context, error) {
	a, err := app.NewApp(*configPath)
	if err != nil {
		return nil, ctx, err
	}
	uc := &common.UserContext{UserID: *userID, Source: "cli"}
	return a, common.WithUserContext(ctx, uc), nil
}

// run opens the App, calls fn and prints its result as indented JSON.
func run(ctx context.Context, fn func(ctx context.Context, a *app.App) (interface{}, error)) subcommands.ExitStatus {
	a, ctx, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	out, err := fn(ctx, a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := printJSON(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDay parses a YYYY-MM-DD flag value; an empty value yields fallback.
func parseDay(value string, fallback date.Date) (date.Date, error) {
	if value == "" {
		return fallback, nil
	}
	return date.Parse(value)
}
