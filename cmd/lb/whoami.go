package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated Linear identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if !a.sync.Remote() {
			if jsonOut {
				return printJSON(map[string]interface{}{"local_only": true})
			}
			fmt.Println("local-only mode; no remote identity")
			return nil
		}

		email, err := a.sync.ViewerEmail(ctx)
		if err != nil {
			return err
		}
		team, err := a.sync.ResolveTeam(ctx)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(map[string]interface{}{
				"email":     email,
				"team_key":  team.Key,
				"team_name": team.Name,
				"repo":      a.cfg.RepoName,
			})
		}
		fmt.Printf("%s\n", email)
		fmt.Printf("team:  %s (%s)\n", team.Key, team.Name)
		fmt.Printf("repo:  %s\n", a.cfg.RepoName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
