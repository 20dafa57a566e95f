package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/linear"
	"github.com/steveyegge/lb/internal/types"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "One-shot migrations of how issues are tagged on Linear",
}

var migrateTypeDryRun bool

var migrateTypeCmd = &cobra.Command{
	Use:   "remove-type-labels",
	Short: "Strip type-group labels from every repo issue",
	Long: `Remove labels nested under the "type" label group from every issue in
this repository's scope, for teams that use Linear's native issue types
instead. Pair with use_issue_types=false in the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		client, _, labelIDs, err := migrateSetup(ctx, a)
		if err != nil {
			return err
		}

		scope, err := a.sync.ResolveScope(ctx)
		if err != nil {
			return err
		}
		wire, err := client.FetchIssues(ctx, scope, nil)
		if err != nil {
			return err
		}

		changed := 0
		for i := range wire {
			issue := &wire[i]
			keep := make([]string, 0, len(issue.Labels.Nodes))
			typed := false
			for _, node := range issue.Labels.Nodes {
				if node.Parent != nil && node.Parent.Name == linear.TypeLabelGroup {
					typed = true
					continue
				}
				if id, ok := labelIDs[node.Name]; ok {
					keep = append(keep, id)
				}
			}
			if !typed {
				continue
			}
			changed++
			if migrateTypeDryRun {
				fmt.Printf("would strip type label from %s\n", issue.Identifier)
				continue
			}
			if _, err := client.UpdateIssue(ctx, issue.ID, linear.IssueInput{LabelIDs: keep}); err != nil {
				return err
			}
			if cached, err := a.store.GetIssue(issue.Identifier); err == nil {
				cached.IssueType = ""
				if err := a.store.UpsertIssue(cached); err != nil {
					return err
				}
			}
		}
		if migrateTypeDryRun {
			fmt.Printf("%d issue(s) would change\n", changed)
		} else {
			fmt.Printf("stripped type labels from %d issue(s)\n", changed)
		}
		return nil
	},
}

var (
	migrateProjectDryRun      bool
	migrateProjectRemoveLabel bool
)

var migrateProjectCmd = &cobra.Command{
	Use:   "to-project",
	Short: "Move repo scoping from the repo label to a project",
	Long: `Create (or find) the project named after this repository and put every
label-scoped issue into it. With --remove-label the repo label is dropped
from each issue afterwards. Finish by setting repo_scope to "project" in the
configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		client, team, labelIDs, err := migrateSetup(ctx, a)
		if err != nil {
			return err
		}

		projectID, err := client.EnsureProject(ctx, team.ID, a.cfg.RepoName)
		if err != nil {
			return err
		}

		repoLabel := a.sync.RepoLabel()
		wire, err := client.FetchIssues(ctx, linear.Scope{LabelName: repoLabel}, nil)
		if err != nil {
			return err
		}

		moved := 0
		for i := range wire {
			issue := &wire[i]
			moved++
			if migrateProjectDryRun {
				fmt.Printf("would move %s into project %s\n", issue.Identifier, a.cfg.RepoName)
				continue
			}
			input := linear.IssueInput{ProjectID: &projectID}
			if migrateProjectRemoveLabel {
				keep := make([]string, 0, len(issue.Labels.Nodes))
				for _, node := range issue.Labels.Nodes {
					if node.Name == repoLabel {
						continue
					}
					if id, ok := labelIDs[node.Name]; ok {
						keep = append(keep, id)
					}
				}
				input.LabelIDs = keep
			}
			if _, err := client.UpdateIssue(ctx, issue.ID, input); err != nil {
				return err
			}
		}
		if migrateProjectDryRun {
			fmt.Printf("%d issue(s) would move\n", moved)
		} else {
			fmt.Printf("moved %d issue(s) into project %s\n", moved, a.cfg.RepoName)
			fmt.Println(`set "repo_scope": "project" in the configuration to finish`)
		}
		return nil
	},
}

// migrateSetup resolves the pieces both migrations need: a live client, the
// team, and a label name to id map.
func migrateSetup(ctx context.Context, a *app) (*linear.Client, *linear.Team, map[string]string, error) {
	if !a.sync.Remote() {
		return nil, nil, nil, fmt.Errorf("%w: migrations require a configured remote", types.ErrValidation)
	}
	client := a.sync.Client()
	team, err := a.sync.ResolveTeam(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	labels, err := client.Labels(ctx, team.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	labelIDs := make(map[string]string, len(labels))
	for _, label := range labels {
		labelIDs[label.Name] = label.ID
	}
	return client, team, labelIDs, nil
}

func init() {
	migrateTypeCmd.Flags().BoolVar(&migrateTypeDryRun, "dry-run", false, "report changes without applying them")
	migrateProjectCmd.Flags().BoolVar(&migrateProjectDryRun, "dry-run", false, "report changes without applying them")
	migrateProjectCmd.Flags().BoolVar(&migrateProjectRemoveLabel, "remove-label", false, "drop the repo label after moving")

	migrateCmd.AddCommand(migrateTypeCmd)
	migrateCmd.AddCommand(migrateProjectCmd)
	rootCmd.AddCommand(migrateCmd)
}
