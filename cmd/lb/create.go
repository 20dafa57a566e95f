package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/types"
)

var (
	createDesc       string
	createType       string
	createPriority   int
	createParent     string
	createBlocks     []string
	createBlockedBy  []string
	createRelated    []string
	createDiscovered []string
	createDeps       string
	createAssign     string
	createUnassign   bool
	createSyncFlag   bool
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create an issue",
	Long: `Create an issue in the cache and queue its creation on Linear.

By default the command returns immediately: the cache row carries a pending
identifier until the background worker confirms the create and renames it to
the real one. With --sync the Linear call happens inline and the real
identifier is printed. In local-only mode the issue gets a LOCAL-<n>
identifier and nothing is queued.

Relation flags (--blocks, --blocked-by, --related, --discovered-from) may be
repeated; --deps takes the legacy comma-separated type:ID form.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.TrimSpace(strings.Join(args, " "))

		var issueType types.IssueType
		if createType != "" {
			t, err := types.ParseIssueType(createType)
			if err != nil {
				return err
			}
			issueType = t
		}
		if createParent != "" && !types.IsIdentifier(createParent) {
			return fmt.Errorf("%w: malformed parent identifier %q", types.ErrValidation, createParent)
		}
		specs, err := collectDepSpecs(createBlocks, createBlockedBy, createRelated, createDiscovered, createDeps)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		assignee := ""
		if createAssign != "" && !createUnassign {
			assignee, err = a.resolveAssignee(ctx, createAssign)
			if err != nil {
				return err
			}
		}

		issue := &types.Issue{
			Title:       title,
			Description: createDesc,
			Status:      types.StatusOpen,
			Priority:    createPriority,
			IssueType:   issueType,
			Assignee:    assignee,
		}
		issue.SetDefaults()
		if err := issue.Validate(); err != nil {
			return err
		}

		payload := &types.CreatePayload{
			Title:       issue.Title,
			Description: issue.Description,
			Status:      issue.Status,
			Priority:    issue.Priority,
			IssueType:   issue.IssueType,
			Assignee:    issue.Assignee,
			Parent:      createParent,
			Deps:        specs,
		}

		if createSyncFlag {
			if !a.sync.Remote() {
				return fmt.Errorf("%w: --sync requires a configured remote", types.ErrValidation)
			}
			created, err := a.sync.CreateRemote(ctx, payload)
			if err != nil {
				return err
			}
			created.Dependencies, _ = a.store.DepsOf(created.ID)
			return printIssue(created)
		}

		if !a.sync.Remote() {
			issue.ID, err = a.store.NextLocalID()
			if err != nil {
				return err
			}
			if err := a.store.UpsertIssue(issue); err != nil {
				return err
			}
			issue.Dependencies, err = applyDepSpecs(a.store, issue.ID, createParent, specs, "user")
			if err != nil {
				return err
			}
			return printIssue(issue)
		}

		issue.ID = types.PendingID + "-" + uuid.NewString()[:8]
		payload.PendingID = issue.ID
		if err := a.store.UpsertIssue(issue); err != nil {
			return err
		}
		issue.Dependencies, err = applyDepSpecs(a.store, issue.ID, createParent, specs, "user")
		if err != nil {
			return err
		}
		if err := a.enqueue(types.OpCreate, payload); err != nil {
			return err
		}
		return printIssue(issue)
	},
}

func init() {
	createCmd.Flags().StringVarP(&createDesc, "description", "d", "", "issue description (markdown)")
	createCmd.Flags().StringVarP(&createType, "type", "t", "", "issue type (bug, feature, task, epic, chore)")
	createCmd.Flags().IntVarP(&createPriority, "priority", "p", 2, "priority, 0 (urgent) to 4 (none)")
	createCmd.Flags().StringVar(&createParent, "parent", "", "parent issue identifier")
	createCmd.Flags().StringArrayVar(&createBlocks, "blocks", nil, "issue this one blocks (repeatable)")
	createCmd.Flags().StringArrayVar(&createBlockedBy, "blocked-by", nil, "issue blocking this one (repeatable)")
	createCmd.Flags().StringArrayVar(&createRelated, "related", nil, "related issue (repeatable)")
	createCmd.Flags().StringArrayVar(&createDiscovered, "discovered-from", nil, "issue this one was discovered from (repeatable)")
	createCmd.Flags().StringVar(&createDeps, "deps", "", "comma-separated type:ID dependency list")
	createCmd.Flags().StringVar(&createAssign, "assign", "", "assignee email, or 'me'")
	createCmd.Flags().BoolVar(&createUnassign, "unassign", false, "leave the issue unassigned")
	createCmd.Flags().BoolVar(&createSyncFlag, "sync", false, "create on Linear inline instead of queueing")
	rootCmd.AddCommand(createCmd)
}
