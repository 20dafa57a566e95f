package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/deps"
	"github.com/steveyegge/lb/internal/types"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges between issues",
}

var (
	depAddBlocks    string
	depAddBlockedBy string
	depAddRelated   string
)

var depAddCmd = &cobra.Command{
	Use:   "add <id> (--blocks T | --blocked-by T | --related T)",
	Short: "Add a dependency edge",
	Long: `Add one directed edge between two cached issues.

--blocks records that <id> blocks T; --blocked-by records the inverse edge
(T blocks <id>); --related records an informational link. Exactly one of the
three must be given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var depType types.DependencyType
		var other string
		var inverse bool
		set := 0
		if depAddBlocks != "" {
			depType, other = types.DepBlocks, depAddBlocks
			set++
		}
		if depAddBlockedBy != "" {
			depType, other, inverse = types.DepBlocks, depAddBlockedBy, true
			set++
		}
		if depAddRelated != "" {
			depType, other = types.DepRelated, depAddRelated
			set++
		}
		if set != 1 {
			return fmt.Errorf("%w: exactly one of --blocks, --blocked-by, --related is required", types.ErrValidation)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		issue, err := a.getIssue(args[0])
		if err != nil {
			return err
		}
		target, err := a.getIssue(other)
		if err != nil {
			return err
		}

		edge := &types.Dependency{
			IssueID:     issue.ID,
			DependsOnID: target.ID,
			Type:        depType,
			CreatedBy:   "user",
		}
		if inverse {
			edge.IssueID, edge.DependsOnID = target.ID, issue.ID
		}
		if err := edge.Validate(); err != nil {
			return err
		}
		if err := a.store.UpsertDep(edge); err != nil {
			return err
		}
		if a.sync.Remote() {
			rel := types.RelationPayload{IssueID: edge.IssueID, DependsOnID: edge.DependsOnID, Type: edge.Type}
			if err := a.enqueue(types.OpCreateRelation, rel); err != nil {
				return err
			}
		}
		fmt.Printf("%s %s %s\n", edge.IssueID, edge.Type, edge.DependsOnID)
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <a> <b>",
	Short: "Remove every dependency edge between two issues",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		first, err := a.getIssue(args[0])
		if err != nil {
			return err
		}
		second, err := a.getIssue(args[1])
		if err != nil {
			return err
		}

		// Collect the edges in either orientation, then remove each once.
		seen := map[types.DependencyType]*types.Dependency{}
		for _, id := range []string{first.ID, second.ID} {
			edges, err := a.store.DepsOf(id)
			if err != nil {
				return err
			}
			for _, edge := range edges {
				if (edge.IssueID == first.ID && edge.DependsOnID == second.ID) ||
					(edge.IssueID == second.ID && edge.DependsOnID == first.ID) {
					seen[edge.Type] = edge
				}
			}
		}
		if len(seen) == 0 {
			return fmt.Errorf("%w: no dependency between %s and %s", types.ErrNotFound, first.ID, second.ID)
		}

		for _, edge := range seen {
			if err := a.store.DeleteDep(edge.IssueID, edge.DependsOnID, edge.Type); err != nil {
				return err
			}
			if a.sync.Remote() {
				rel := types.RelationPayload{IssueID: edge.IssueID, DependsOnID: edge.DependsOnID, Type: edge.Type}
				if err := a.enqueue(types.OpDeleteRelation, rel); err != nil {
					return err
				}
			}
		}
		fmt.Printf("removed %d edge(s) between %s and %s\n", len(seen), first.ID, second.ID)
		return nil
	},
}

var depTreeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Print the dependency tree rooted at an issue",
	Long: `Walk the outgoing blocks and parent-child edges depth-first and print
them as an indented tree. Cycles are cut and annotated; open issues with no
open blockers are tagged [READY].`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tree, err := deps.Tree(a.store, args[0])
		if err != nil {
			return err
		}
		fmt.Print(tree)
		return nil
	},
}

func init() {
	depAddCmd.Flags().StringVar(&depAddBlocks, "blocks", "", "issue the subject blocks")
	depAddCmd.Flags().StringVar(&depAddBlockedBy, "blocked-by", "", "issue blocking the subject")
	depAddCmd.Flags().StringVar(&depAddRelated, "related", "", "related issue")

	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	depCmd.AddCommand(depTreeCmd)
	rootCmd.AddCommand(depCmd)
}
