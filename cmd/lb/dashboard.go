package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/dashboard"
)

var dashboardAddr string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve a live read-only view of the issue cache",
	Long: `Start a local HTTP server over the issue cache.

GET /issues returns the cached issue list as JSON; ws://<addr>/ws pushes a
fresh snapshot whenever the canonical .lb/issues.jsonl changes, so editors
and agents can follow the tracker without polling. The server never writes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		server := dashboard.New(a.cfg, a.store, dashboardAddr,
			log.New(os.Stderr, "[dashboard] ", log.LstdFlags))
		if err := server.Start(); err != nil {
			return err
		}

		fmt.Printf("dashboard on http://%s (ws://%s/ws)\n", server.Addr(), server.Addr())
		fmt.Println("press Ctrl+C to stop")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		return server.Stop()
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardAddr, "addr", "localhost:7077", "address to listen on")
	rootCmd.AddCommand(dashboardCmd)
}
