package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/types"
	"github.com/steveyegge/lb/internal/ui"
)

var (
	closeReason   string
	closeSyncFlag bool
)

var closeCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close an issue",
	Long: `Close an issue, optionally leaving a closing comment on Linear.

The cache row is marked closed immediately; the Linear transition is queued
unless --sync performs it inline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		issue, err := a.getIssue(args[0])
		if err != nil {
			return err
		}
		payload := &types.ClosePayload{ID: issue.ID, Comment: closeReason}

		if closeSyncFlag {
			if !a.sync.Remote() {
				return fmt.Errorf("%w: --sync requires a configured remote", types.ErrValidation)
			}
			closed, err := a.sync.CloseRemote(ctx, payload)
			if err != nil {
				return err
			}
			return printIssue(closed)
		}

		now := time.Now().UTC()
		issue.Status = types.StatusClosed
		issue.UpdatedAt = now
		if issue.ClosedAt == nil {
			issue.ClosedAt = &now
		}
		if err := a.store.UpsertIssue(issue); err != nil {
			return err
		}
		if a.sync.Remote() {
			if err := a.enqueue(types.OpClose, payload); err != nil {
				return err
			}
		}
		return printIssue(issue)
	},
}

var (
	deleteForce    bool
	deleteSyncFlag bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an issue",
	Long: `Delete an issue from the cache and from Linear.

Asks for confirmation unless --force is given. The cache row and its edges
go away immediately; the Linear deletion is queued unless --sync performs it
inline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		issue, err := a.getIssue(args[0])
		if err != nil {
			return err
		}

		if !deleteForce {
			confirmed := false
			prompt := huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s %q?", issue.ID, issue.Title)).
				Value(&confirmed)
			if err := prompt.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(ui.Muted("aborted"))
				return nil
			}
		}

		if err := a.store.DeleteIssue(issue.ID); err != nil {
			return err
		}
		payload := &types.DeletePayload{ID: issue.ID}

		if deleteSyncFlag {
			if !a.sync.Remote() {
				return fmt.Errorf("%w: --sync requires a configured remote", types.ErrValidation)
			}
			if err := a.sync.DeleteRemote(ctx, payload); err != nil {
				return err
			}
		} else if a.sync.Remote() {
			if err := a.enqueue(types.OpDelete, payload); err != nil {
				return err
			}
		}
		fmt.Printf("deleted %s\n", issue.ID)
		return nil
	},
}

func init() {
	closeCmd.Flags().StringVarP(&closeReason, "reason", "r", "", "closing comment to post on Linear")
	closeCmd.Flags().BoolVar(&closeSyncFlag, "sync", false, "close on Linear inline instead of queueing")

	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip the confirmation prompt")
	deleteCmd.Flags().BoolVar(&deleteSyncFlag, "sync", false, "delete on Linear inline instead of queueing")

	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(deleteCmd)
}
