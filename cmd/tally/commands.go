package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/bobmcallan/tally/internal/app"
	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/date"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// requireAccount reports a usage error when the account argument is missing.
func requireAccount(f *flag.FlagSet) (string, bool) {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one account id is required")
		return "", false
	}
	return f.Arg(0), true
}

type accountsCmd struct{}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts with their current balance" }
func (*accountsCmd) Usage() string {
	return `tally accounts

  Lists the user's accounts.
`
}
func (*accountsCmd) SetFlags(*flag.FlagSet) {}

func (*accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, a *app.App) (interface{}, error) {
		return a.LedgerService.ListAccounts(ctx)
	})
}

// balanceCmd holds the flags for the 'balance' subcommand.
type balanceCmd struct {
	date string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show an account balance at the end of a day" }
func (*balanceCmd) Usage() string {
	return `tally balance [-d <date>] <account-id>

  Resolves the balance from the snapshot cache, falling back to the ledger.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "day to resolve (YYYY-MM-DD), defaults to today")
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	accountID, ok := requireAccount(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app.App) (interface{}, error) {
		day, err := parseDay(c.date, date.Today(a.LedgerService.Location()))
		if err != nil {
			return nil, err
		}
		return a.LedgerService.BalanceOn(ctx, accountID, day)
	})
}

// snapshotsCmd holds the flags for the 'snapshots' subcommand.
type snapshotsCmd struct {
	from string
	to   string
}

func (*snapshotsCmd) Name() string     { return "snapshots" }
func (*snapshotsCmd) Synopsis() string { return "list cached end-of-day balances" }
func (*snapshotsCmd) Usage() string {
	return `tally snapshots [-from <date>] [-to <date>] <account-id>

  Lists snapshots in the inclusive range. -to defaults to today and
  -from to thirty days before -to.
`
}

func (c *snapshotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "first day (YYYY-MM-DD)")
	f.StringVar(&c.to, "to", "", "last day (YYYY-MM-DD)")
}

func (c *snapshotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	accountID, ok := requireAccount(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app.App) (interface{}, error) {
		to, err := parseDay(c.to, date.Today(a.LedgerService.Location()))
		if err != nil {
			return nil, err
		}
		from, err := parseDay(c.from, to.Add(-30))
		if err != nil {
			return nil, err
		}
		return a.LedgerService.ListSnapshots(ctx, accountID, date.NewRange(from, to))
	})
}

// anchorCmd holds the flags for the 'anchor' subcommand.
type anchorCmd struct {
	date     string
	balance  string
	category string
}

func (*anchorCmd) Name() string     { return "anchor" }
func (*anchorCmd) Synopsis() string { return "pin an account balance on a day" }
func (*anchorCmd) Usage() string {
	return `tally anchor -d <date> -b <balance> [-category <id>] <account-id>

  Creates, updates or removes the balancing transfer so the balance at the
  end of the day equals -b.
`
}

func (c *anchorCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "day to anchor (YYYY-MM-DD)")
	f.StringVar(&c.balance, "b", "", "known real-world balance at the end of the day")
	f.StringVar(&c.category, "category", "", "balancing-transfer category id, defaults to the user's")
}

func (c *anchorCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	accountID, ok := requireAccount(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	if c.date == "" || c.balance == "" {
		fmt.Fprintln(os.Stderr, "Error: -d and -b are required")
		return subcommands.ExitUsageError
	}
	day, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	target, err := decimal.NewFromString(c.balance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing balance: %v\n", err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(ctx context.Context, a *app.App) (interface{}, error) {
		categoryID := c.category
		if categoryID == "" {
			cat, err := a.LedgerService.BalancingCategory(ctx)
			if err != nil {
				return nil, err
			}
			categoryID = cat.ID
		}
		result, err := a.ReconcileService.UpsertAnchor(ctx, accountID, day, target, categoryID)
		if errors.Is(err, models.ErrComputationNoOp) {
			return result, nil
		}
		return result, err
	})
}

type unanchorCmd struct{}

func (*unanchorCmd) Name() string     { return "unanchor" }
func (*unanchorCmd) Synopsis() string { return "delete an anchor transaction" }
func (*unanchorCmd) Usage() string {
	return `tally unanchor <transaction-id>

  Deletes the anchor and recomputes the balances it pinned.
`
}
func (*unanchorCmd) SetFlags(*flag.FlagSet) {}

func (*unanchorCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one transaction id is required")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
	return run(ctx, func(ctx context.Context, a *app.App) (interface{}, error) {
		return a.ReconcileService.DeleteAnchor(ctx, id)
	})
}

// recomputeCmd holds the flags for the 'recompute' subcommand.
type recomputeCmd struct {
	from    string
	exclude string
}

func (*recomputeCmd) Name() string     { return "recompute" }
func (*recomputeCmd) Synopsis() string { return "recompute snapshots from a day" }
func (*recomputeCmd) Usage() string {
	return `tally recompute -from <date> [-exclude <transaction-id>] <account-id>

  Rewrites snapshots from the day up to the next anchor and refreshes the
  current balance.
`
}

func (c *recomputeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "first day to recompute (YYYY-MM-DD)")
	f.StringVar(&c.exclude, "exclude", "", "transaction id to leave out of every sum")
}

func (c *recomputeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	accountID, ok := requireAccount(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	from, err := date.Parse(c.from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -from: %v\n", err)
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app.App) (interface{}, error) {
		return a.ReconcileService.RecomputeFrom(ctx, accountID, from, c.exclude)
	})
}

type rebuildCmd struct{}

func (*rebuildCmd) Name() string     { return "rebuild" }
func (*rebuildCmd) Synopsis() string { return "drop and regenerate every snapshot of an account" }
func (*rebuildCmd) Usage() string {
	return `tally rebuild <account-id>
`
}
func (*rebuildCmd) SetFlags(*flag.FlagSet) {}

func (*rebuildCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	accountID, ok := requireAccount(f)
	if !ok {
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, a *app.App) (interface{}, error) {
		return a.ReconcileService.Rebuild(ctx, accountID)
	})
}

type versionCmd struct{}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "print version information" }
func (*versionCmd) Usage() string          { return "tally version\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}

func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	common.LoadVersionFromFile()
	fmt.Println(common.GetFullVersion())
	return subcommands.ExitSuccess
}
