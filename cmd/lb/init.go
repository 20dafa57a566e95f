package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the .lb state directory for this repository",
	Long: `Create <repo>/.lb with an empty cache database and a per-repo
configuration skeleton. Safe to run more than once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := config.Load(cwd, rootCmd.PersistentFlags())
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.LbDir(), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", cfg.LbDir(), err)
		}

		repoConfig := filepath.Join(cfg.LbDir(), "config.jsonc")
		if _, err := os.Stat(repoConfig); os.IsNotExist(err) {
			skeleton := fmt.Sprintf(`{
  // Repository-local settings. Env vars and flags override these.
  "repo_name": %q,
  // "repo_scope": "label",     // label, project, or both
  // "team_key": "ENG",
  // "local_only": false,
  // "cache_ttl_seconds": 120
}
`, cfg.RepoName)
			if err := os.WriteFile(repoConfig, []byte(skeleton), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", repoConfig, err)
			}
		}

		st, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return err
		}
		if err := st.Close(); err != nil {
			return err
		}

		fmt.Printf("initialized %s (repo %s)\n", cfg.LbDir(), cfg.RepoName)
		if cfg.APIKey == "" && !cfg.LocalOnly {
			fmt.Println("next: run 'lb auth' to connect a Linear workspace")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
