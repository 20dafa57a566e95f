package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/linear"
	"github.com/steveyegge/lb/internal/ui"
)

var (
	authShow  bool
	authClear bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store the Linear API credential",
	Long: `Prompt for a Linear API key, verify it, and store it in the global
configuration file (~/.config/lb/config.jsonc, mode 0600).

--show prints the currently configured identity without changing anything;
--clear removes the stored key. The LINEAR_API_KEY environment variable
always overrides the stored key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := config.Load(cwd, rootCmd.PersistentFlags())
		if err != nil {
			return err
		}

		if authShow {
			if cfg.APIKey == "" {
				fmt.Println("no credential stored")
				return nil
			}
			fmt.Printf("api key:  %s\n", maskKey(cfg.APIKey))
			if cfg.TeamKey != "" {
				fmt.Printf("team:     %s\n", cfg.TeamKey)
			}
			return nil
		}

		if authClear {
			if err := config.WriteGlobal(map[string]interface{}{"api_key": nil}); err != nil {
				return err
			}
			fmt.Println("credential cleared")
			return nil
		}

		var key string
		prompt := huh.NewInput().
			Title("Linear API key").
			Description("Create one under Linear settings > API > Personal API keys.").
			EchoMode(huh.EchoModePassword).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("key is required")
				}
				return nil
			}).
			Value(&key)
		if err := prompt.Run(); err != nil {
			return err
		}
		key = strings.TrimSpace(key)

		viewer, err := linear.NewClient(key).Viewer(cmd.Context())
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"api_key": key}
		if flagTeam != "" {
			updates["team_key"] = flagTeam
		}
		if err := config.WriteGlobal(updates); err != nil {
			return err
		}
		fmt.Printf("authenticated as %s %s\n", viewer.Email, ui.Muted("("+viewer.Name+")"))
		return nil
	},
}

func maskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:8] + "…" + key[len(key)-4:]
}

func init() {
	authCmd.Flags().BoolVar(&authShow, "show", false, "print the stored identity")
	authCmd.Flags().BoolVar(&authClear, "clear", false, "remove the stored credential")
	rootCmd.AddCommand(authCmd)
}
