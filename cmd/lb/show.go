package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/types"
)

var showSync bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one issue with its dependency edges",
	Long: `Show the full record of one issue.

With --sync the issue is re-fetched from Linear together with its outgoing
and inverse relations, reconciling the cached edges against the remote view.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		var issue *types.Issue
		if showSync && a.sync.Remote() {
			issue, err = a.sync.HydrateIssue(ctx, args[0])
		} else {
			if err := a.ensureFresh(ctx, false); err != nil {
				return err
			}
			issue, err = a.getIssue(args[0])
		}
		if err != nil {
			return err
		}

		if len(issue.Dependencies) == 0 {
			edges, err := a.store.DepsOf(issue.ID)
			if err != nil {
				return err
			}
			issue.Dependencies = edges
		}
		return printIssue(issue)
	},
}

func init() {
	showCmd.Flags().BoolVar(&showSync, "sync", false, "re-fetch the issue and its relations from Linear")
	rootCmd.AddCommand(showCmd)
}
