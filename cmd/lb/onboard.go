package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const onboardText = `# Working with lb

lb is an offline-first issue tracker backed by Linear. Reads come from a
local cache under .lb/ and writes are queued and pushed by a background
worker, so every command returns instantly.

## Setup (once)

    lb init            # create .lb/ in this repository
    lb auth            # store your Linear API key (or set LINEAR_API_KEY)

## Everyday commands

    lb ready           # open issues with nothing blocking them, yours or unassigned
    lb list            # all non-closed issues
    lb show ENG-123    # one issue with its dependency edges
    lb create "Fix the flaky login test" -t bug -p 1
    lb update ENG-123 -s in_progress --assign me
    lb close ENG-123 -r "fixed in a1b2c3"
    lb blocked         # what is stuck, and on what

New issues print a pending identifier; the worker swaps in the real one
within a few seconds. Add --sync to any write to wait for Linear inline.

## Dependencies

    lb dep add ENG-2 --blocks ENG-5      # ENG-2 blocks ENG-5
    lb dep add ENG-5 --blocked-by ENG-2  # same edge, other direction
    lb dep tree ENG-1                    # walk the graph from ENG-1

An issue is blocked while any non-closed issue blocks it, directly or via a
blocked parent. 'lb ready' hides blocked issues automatically.

## Data for tools

    lb list -j               # JSON on stdout
    .lb/issues.jsonl         # canonical snapshot, one issue per line,
                             # rewritten atomically after every change

## When the network is down

Reads serve the cache with a staleness notice. Writes queue in the outbox
and are pushed when connectivity returns; 'lb sync' pushes and pulls on
demand. With "local_only": true in the config, lb never contacts Linear and
issues get LOCAL-<n> identifiers.
`

var onboardOut string

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Print a usage guide for humans and coding agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		if onboardOut == "" {
			fmt.Print(onboardText)
			return nil
		}
		if err := os.WriteFile(onboardOut, []byte(onboardText), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", onboardOut, err)
		}
		fmt.Printf("wrote %s\n", onboardOut)
		return nil
	},
}

func init() {
	onboardCmd.Flags().StringVarP(&onboardOut, "output", "o", "", "write the guide to a file instead of stdout")
	rootCmd.AddCommand(onboardCmd)
}
