package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/types"
)

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued writes and pull the latest issues",
	Long: `Synchronize the cache with Linear now, in the foreground.

Queued writes are pushed first, then issues are pulled: incrementally when
the cache has a recent full snapshot, or as a full paginated pull when it is
stale (or --full is given). A full pull also prunes issues deleted on
Linear.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.sync.Remote() {
			pending, _ := a.store.CountOutbox()
			return fmt.Errorf("%w: no remote configured; %d queued write(s) waiting", types.ErrOffline, pending)
		}

		a.sync.ForceFull = syncFull
		result, err := a.sync.SmartSync(cmd.Context())
		if err != nil {
			if types.IsNetwork(err) {
				pending, _ := a.store.CountOutbox()
				return fmt.Errorf("%w: Linear unreachable; %d queued write(s) will be retried", types.ErrOffline, pending)
			}
			return err
		}

		if jsonOut {
			return printJSON(result)
		}
		mode := "incremental"
		if result.Full {
			mode = "full"
		}
		fmt.Printf("pushed %d, failed %d, pulled %d (%s)", result.Pushed, result.Failed, result.Pulled, mode)
		if result.Pruned > 0 {
			fmt.Printf(", pruned %d", result.Pruned)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "force a full paginated pull")
	rootCmd.AddCommand(syncCmd)
}
