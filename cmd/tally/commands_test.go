package main

import (
	"context"
	"flag"
	"testing"

	"github.com/bobmcallan/tally/internal/date"
	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	fallback := date.New(2025, 3, 1)

	d, err := parseDay("", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, d)

	d, err = parseDay("2025-02-14", fallback)
	require.NoError(t, err)
	assert.Equal(t, date.New(2025, 2, 14), d)

	_, err = parseDay("14/02/2025", fallback)
	assert.Error(t, err)
}

func TestRegisterNamesCommands(t *testing.T) {
	fs := flag.NewFlagSet("tally", flag.ContinueOnError)
	commander := subcommands.NewCommander(fs, "tally")
	Register(commander)

	var names []string
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		names = append(names, c.Name())
	})
	assert.ElementsMatch(t, []string{
		"accounts", "balance", "snapshots", "anchor", "unanchor", "recompute", "rebuild", "version",
	}, names)
}

func TestAccountCommandsRequireAccountID(t *testing.T) {
	cmds := []subcommands.Command{&balanceCmd{}, &snapshotsCmd{}, &rebuildCmd{}, &unanchorCmd{}}
	for _, c := range cmds {
		t.Run(c.Name(), func(t *testing.T) {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			require.NoError(t, fs.Parse(nil))
			assert.Equal(t, subcommands.ExitUsageError, c.Execute(context.Background(), fs))
		})
	}
}

func TestAnchorCommandValidatesFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing balance", []string{"-d", "2025-01-04", "acc_1"}},
		{"bad date", []string{"-d", "04/01/2025", "-b", "100", "acc_1"}},
		{"bad balance", []string{"-d", "2025-01-04", "-b", "lots", "acc_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &anchorCmd{}
			fs := flag.NewFlagSet("anchor", flag.ContinueOnError)
			c.SetFlags(fs)
			require.NoError(t, fs.Parse(tt.args))
			assert.Equal(t, subcommands.ExitUsageError, c.Execute(context.Background(), fs))
		})
	}
}
