package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/types"
)

var (
	updateTitle     string
	updateDesc      string
	updateStatus    string
	updatePriority  int
	updateType      string
	updateParent    string
	updateBlocks    []string
	updateBlockedBy []string
	updateRelated   []string
	updateAssign    string
	updateUnassign  bool
	updateSyncFlag  bool
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields or relations of an issue",
	Long: `Update an issue. Only the flags you pass change anything.

The cache row is overwritten immediately and the field update is queued for
the worker; --sync performs the Linear call inline instead. Relation flags
add edges the same way 'dep add' does.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := &types.UpdatePayload{}
		if cmd.Flags().Changed("title") {
			if updateTitle == "" {
				return fmt.Errorf("%w: title cannot be empty", types.ErrValidation)
			}
			payload.Title = &updateTitle
		}
		if cmd.Flags().Changed("description") {
			payload.Description = &updateDesc
		}
		if cmd.Flags().Changed("status") {
			status, err := types.ParseStatus(updateStatus)
			if err != nil {
				return err
			}
			payload.Status = &status
		}
		if cmd.Flags().Changed("priority") {
			if updatePriority < 0 || updatePriority > 4 {
				return fmt.Errorf("%w: priority must be between 0 and 4 (got %d)", types.ErrValidation, updatePriority)
			}
			payload.Priority = &updatePriority
		}
		if cmd.Flags().Changed("type") {
			t, err := types.ParseIssueType(updateType)
			if err != nil {
				return err
			}
			payload.IssueType = &t
		}
		if updateParent != "" && !types.IsIdentifier(updateParent) {
			return fmt.Errorf("%w: malformed parent identifier %q", types.ErrValidation, updateParent)
		}
		specs, err := collectDepSpecs(updateBlocks, updateBlockedBy, updateRelated, nil, "")
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if updateUnassign {
			empty := ""
			payload.Assignee = &empty
		} else if cmd.Flags().Changed("assign") {
			assignee, err := a.resolveAssignee(ctx, updateAssign)
			if err != nil {
				return err
			}
			payload.Assignee = &assignee
		}

		issue, err := a.getIssue(args[0])
		if err != nil {
			return err
		}
		payload.ID = issue.ID

		hasFields := payload.Title != nil || payload.Description != nil ||
			payload.Status != nil || payload.Priority != nil ||
			payload.IssueType != nil || payload.Assignee != nil
		if !hasFields && updateParent == "" && len(specs) == 0 {
			return fmt.Errorf("%w: nothing to update", types.ErrValidation)
		}

		if updateSyncFlag {
			if !a.sync.Remote() {
				return fmt.Errorf("%w: --sync requires a configured remote", types.ErrValidation)
			}
			if hasFields {
				issue, err = a.sync.UpdateRemote(ctx, payload)
				if err != nil {
					return err
				}
			}
			edges, err := applyDepSpecs(a.store, issue.ID, updateParent, specs, "user")
			if err != nil {
				return err
			}
			for _, edge := range edges {
				rel := types.RelationPayload{IssueID: edge.IssueID, DependsOnID: edge.DependsOnID, Type: edge.Type}
				if err := a.sync.CreateRelationRemote(ctx, &rel); err != nil {
					return err
				}
			}
			issue.Dependencies, _ = a.store.DepsOf(issue.ID)
			return printIssue(issue)
		}

		applyUpdate(issue, payload)
		if err := a.store.UpsertIssue(issue); err != nil {
			return err
		}
		issue.Dependencies, err = applyDepSpecs(a.store, issue.ID, updateParent, specs, "user")
		if err != nil {
			return err
		}

		if a.sync.Remote() {
			if hasFields {
				if err := a.enqueue(types.OpUpdate, payload); err != nil {
					return err
				}
			}
			for _, edge := range issue.Dependencies {
				rel := types.RelationPayload{IssueID: edge.IssueID, DependsOnID: edge.DependsOnID, Type: edge.Type}
				if err := a.enqueue(types.OpCreateRelation, rel); err != nil {
					return err
				}
			}
		}
		return printIssue(issue)
	},
}

// applyUpdate overwrites the cached row with the changed fields, keeping the
// closed_at timestamp consistent with the status.
func applyUpdate(issue *types.Issue, p *types.UpdatePayload) {
	if p.Title != nil {
		issue.Title = *p.Title
	}
	if p.Description != nil {
		issue.Description = *p.Description
	}
	if p.Priority != nil {
		issue.Priority = *p.Priority
	}
	if p.IssueType != nil {
		issue.IssueType = *p.IssueType
	}
	if p.Assignee != nil {
		issue.Assignee = *p.Assignee
	}
	now := time.Now().UTC()
	if p.Status != nil {
		issue.Status = *p.Status
		if issue.Status == types.StatusClosed {
			if issue.ClosedAt == nil {
				issue.ClosedAt = &now
			}
		} else {
			issue.ClosedAt = nil
		}
	}
	issue.UpdatedAt = now
}

func init() {
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	updateCmd.Flags().StringVarP(&updateDesc, "description", "d", "", "new description")
	updateCmd.Flags().StringVarP(&updateStatus, "status", "s", "", "new status (open, in_progress, closed)")
	updateCmd.Flags().IntVarP(&updatePriority, "priority", "p", 2, "new priority (0-4)")
	updateCmd.Flags().StringVarP(&updateType, "type", "t", "", "new issue type")
	updateCmd.Flags().StringVar(&updateParent, "parent", "", "new parent issue identifier")
	updateCmd.Flags().StringArrayVar(&updateBlocks, "blocks", nil, "issue this one blocks (repeatable)")
	updateCmd.Flags().StringArrayVar(&updateBlockedBy, "blocked-by", nil, "issue blocking this one (repeatable)")
	updateCmd.Flags().StringArrayVar(&updateRelated, "related", nil, "related issue (repeatable)")
	updateCmd.Flags().StringVar(&updateAssign, "assign", "", "assignee email, or 'me'")
	updateCmd.Flags().BoolVar(&updateUnassign, "unassign", false, "clear the assignee")
	updateCmd.Flags().BoolVar(&updateSyncFlag, "sync", false, "update on Linear inline instead of queueing")
	rootCmd.AddCommand(updateCmd)
}
