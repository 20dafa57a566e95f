package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lb/internal/export"
	"github.com/steveyegge/lb/internal/importer"
	"github.com/steveyegge/lb/internal/timeparse"
	"github.com/steveyegge/lb/internal/types"
)

var (
	importSource        string
	importDryRun        bool
	importIncludeClosed bool
	importSince         string
	importForce         bool
)

var importCmd = &cobra.Command{
	Use:   "import --source PATH",
	Short: "Import issues from a beads JSONL export",
	Long: `Import issues from a beads JSONL export file.

Imported identifiers are recorded in .lb/import-map.jsonl so running the
import again skips issues already brought over (pass --force to re-import).
Dependency edges between imported issues are recreated with remapped
identifiers in a second pass. --since accepts absolute dates and natural
expressions like "3 days ago".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := importer.Options{
			Source:        importSource,
			DryRun:        importDryRun,
			IncludeClosed: importIncludeClosed,
			Force:         importForce,
		}
		if importSince != "" {
			since, err := timeparse.Parse(importSince, time.Now())
			if err != nil {
				return err
			}
			opts.Since = since
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		im := importer.New(a.cfg, a.store, a.sync, log.New(os.Stderr, "", 0))
		result, err := im.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(result)
		}
		if importDryRun {
			fmt.Printf("would create %d issue(s), skipping %d\n", result.WouldCreate, result.Skipped)
			return nil
		}
		fmt.Printf("created %d issue(s), %d edge(s), skipped %d\n", result.Created, result.Deps, result.Skipped)
		return nil
	},
}

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export [output]",
	Short: "Write the JSONL snapshot of the cache",
	Long: `Write every cached issue as one compact JSON object per line, sorted
by identifier, atomically (tmp file then rename). The default output is the
canonical snapshot at .lb/issues.jsonl; pass a path to write elsewhere.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch exportFormat {
		case "beads", "jsonl":
		default:
			return fmt.Errorf("%w: unknown export format %q (want beads or jsonl)", types.ErrValidation, exportFormat)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		path := a.cfg.JSONLPath()
		if len(args) == 1 {
			path = args[0]
		}
		if err := export.Write(a.store, path); err != nil {
			return err
		}
		count, err := a.store.CountIssues()
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d issue(s) to %s\n", count, path)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "path to the beads JSONL export (required)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "report what would be imported without writing")
	importCmd.Flags().BoolVar(&importIncludeClosed, "include-closed", false, "import closed issues too")
	importCmd.Flags().StringVar(&importSince, "since", "", "only import issues updated since this date")
	importCmd.Flags().BoolVar(&importForce, "force", false, "re-import issues already in the import map")
	_ = importCmd.MarkFlagRequired("source")

	exportCmd.Flags().StringVar(&exportFormat, "format", "beads", "output format (beads)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}
