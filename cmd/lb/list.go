package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/deps"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
	"github.com/steveyegge/lb/internal/ui"
)

var (
	listStatus   string
	listPriority int
	listType     string
	listAll      bool
	listSync     bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cached issues",
	Long: `List issues from the local cache, refreshing it first when stale.

Closed issues are hidden unless --all or an explicit -s closed is given.
When the network is down the cached view is served with a staleness notice.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := store.IssueFilter{}
		if listStatus != "" {
			status, err := types.ParseStatus(listStatus)
			if err != nil {
				return err
			}
			filter.Status = status
		}
		if listType != "" {
			t, err := types.ParseIssueType(listType)
			if err != nil {
				return err
			}
			filter.IssueType = t
		}
		if listPriority != -1 && (listPriority < 0 || listPriority > 4) {
			return fmt.Errorf("%w: priority must be between 0 and 4 (got %d)", types.ErrValidation, listPriority)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if err := a.ensureFresh(ctx, listSync); err != nil {
			return err
		}

		issues, err := a.store.ListIssues(filter)
		if err != nil {
			return err
		}
		filtered := issues[:0]
		for _, issue := range issues {
			if listStatus == "" && !listAll && issue.Status == types.StatusClosed {
				continue
			}
			if listPriority != -1 && issue.Priority != listPriority {
				continue
			}
			filtered = append(filtered, issue)
		}

		if jsonOut {
			return printJSON(filtered)
		}
		fmt.Print(ui.IssueTable(filtered))
		return nil
	},
}

var (
	readyAll  bool
	readySync bool
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List open issues with nothing blocking them",
	Long: `List open issues outside the blocked set, sorted by priority.

Issues assigned to someone else are hidden unless --all is given. An issue
is blocked when a non-closed issue has a blocks edge to it, directly or
through a blocked parent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if err := a.ensureFresh(ctx, readySync); err != nil {
			return err
		}

		viewer := ""
		if !readyAll && a.sync.Remote() {
			// Best effort: an unreachable remote just widens the view.
			viewer, _ = a.sync.ViewerEmail(ctx)
		}

		issues, err := deps.Ready(a.store, viewer, readyAll)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(issues)
		}
		fmt.Print(ui.IssueTable(issues))
		return nil
	},
}

var blockedSync bool

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "List issues in the blocked set with their blockers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ensureFresh(cmd.Context(), blockedSync); err != nil {
			return err
		}

		blocked, err := deps.Blocked(a.store)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(blocked)
		}
		if len(blocked) == 0 {
			fmt.Println("no blocked issues")
			return nil
		}
		for _, item := range blocked {
			fmt.Println(ui.IssueLine(item.Issue))
			if len(item.Blockers) > 0 {
				ids := make([]string, 0, len(item.Blockers))
				for _, blocker := range item.Blockers {
					ids = append(ids, blocker.ID)
				}
				fmt.Println(ui.Muted("    blocked by " + strings.Join(ids, ", ")))
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status (open, in_progress, closed)")
	listCmd.Flags().IntVarP(&listPriority, "priority", "p", -1, "filter by priority (0-4)")
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "filter by issue type")
	listCmd.Flags().BoolVar(&listAll, "all", false, "include closed issues")
	listCmd.Flags().BoolVar(&listSync, "sync", false, "force a refresh before listing")

	readyCmd.Flags().BoolVar(&readyAll, "all", false, "include issues assigned to others")
	readyCmd.Flags().BoolVar(&readySync, "sync", false, "force a refresh first")

	blockedCmd.Flags().BoolVar(&blockedSync, "sync", false, "force a refresh first")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(blockedCmd)
}
