package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

// pipelinesCmd lists the configured pipelines.
var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List the configured pipelines",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		for _, def := range d.service.Definitions() {
			fmt.Printf("%-24s %-18s key=%q", def.Name, def.Kind, def.KeyColumn)
			if def.ProtectColumn != "" {
				fmt.Printf(" protect=%q", def.ProtectColumn)
			}
			if def.FullRewrite {
				fmt.Print(" full-rewrite")
			}
			fmt.Println()
		}
		return nil
	},
}

// historyCmd prints the recorded passes of a pipeline.
var historyCmd = &cobra.Command{
	Use:   "history [pipeline]",
	Short: "Show the latest recorded sync passes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		runs, err := d.service.Runs(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			status := "\033[32mOK\033[0m"
			if !r.Succeeded() {
				status = "\033[31mFAIL\033[0m"
			}
			fmt.Printf("%s  %-13s %s  +%d -%d ~%d  keys=%d  %dms\n",
				r.StartedAt.Format("2006-01-02 15:04:05"), r.Mode, status,
				r.Inserted, r.Deleted, r.Updated, r.KeysWritten, r.DurationMs)
			if r.Error != "" {
				fmt.Printf("    error: %s\n", r.Error)
			}
			for _, w := range r.WarningList() {
				fmt.Printf("    warning: %s\n", w)
			}
		}
		return nil
	},
}

// snapshotCmd prints the latest archived target snapshot of a table.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot [pipeline] [table]",
	Short: "Show the latest archived snapshot of a target table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		if d.snapshots == nil {
			return fmt.Errorf("snapshot archive is disabled (set STORAGE_ENABLED=true)")
		}
		snap, err := d.snapshots.Latest(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Pipeline:  %s\n", snap.Pipeline)
		fmt.Printf("Table:     %s\n", snap.Table)
		fmt.Printf("Taken at:  %s\n", snap.TakenAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("Rows:      %d\n", len(snap.Rows))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of passes to show")

	RootCmd.AddCommand(pipelinesCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(snapshotCmd)
}
