package main

import (
	"fmt"
	"os"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/export"
	"github.com/steveyegge/lb/internal/worker"
)

func main() {
	// Re-entry flags bypass the command surface entirely. The children
	// must not parse user flags and must never initialise the export
	// scheduler, or a worker would spawn workers forever.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case worker.WorkerFlag:
			runChild(worker.Run)
			return
		case worker.ExportWorkerFlag:
			runChild(export.Run)
			return
		}
	}
	os.Exit(Execute())
}

func runChild(fn func(*config.Config) error) {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(cwd, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := fn(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
