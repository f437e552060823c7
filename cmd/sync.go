package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"table-sync/core/reconcile"
	"table-sync/feature/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncAll      bool
	syncDryRun   bool
	syncParallel int
)

// syncCmd runs pipelines once.
var syncCmd = &cobra.Command{
	Use:   "sync [pipeline...]",
	Short: "Run one sync pass of the given pipelines",
	Long: `Runs one reconciliation pass of each named pipeline and prints its report.

Examples:
  # Sync one pipeline
  sync items

  # Sync every configured pipeline, two at a time
  sync --all --parallel 2

  # Show what would change without writing
  sync items --dry-run`,
	RunE: runSync,
}

// planCmd computes the diff without writing.
var planCmd = &cobra.Command{
	Use:   "plan [pipeline...]",
	Short: "Show the changes a sync would make",
	RunE: func(cmd *cobra.Command, args []string) error {
		syncDryRun = true
		return runSync(cmd, args)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "Sync every configured pipeline")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Compute the diff without writing")
	syncCmd.Flags().IntVar(&syncParallel, "parallel", 1, "Maximum pipelines running at once")
	planCmd.Flags().BoolVar(&syncAll, "all", false, "Plan every configured pipeline")

	RootCmd.AddCommand(syncCmd)
	RootCmd.AddCommand(planCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer d.logger.Sync()

	names := args
	if syncAll {
		names = d.service.Names()
	}
	if len(names) == 0 {
		return fmt.Errorf("no pipeline given, pass names or --all (configured: %v)", d.service.Names())
	}

	if syncDryRun {
		return planPipelines(ctx, d.logger, d.service, names)
	}

	results, err := d.service.RunAll(ctx, names, syncParallel)
	for _, res := range results {
		for _, report := range res.Reports {
			printReport(report)
		}
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	d.logger.Info("Sync completed", zap.Int("pipelines", len(results)))
	return nil
}

func planPipelines(ctx context.Context, l *zap.Logger, svc *pipeline.Service, names []string) error {
	for _, name := range names {
		plans, err := svc.Plan(ctx, name)
		if err != nil {
			return fmt.Errorf("plan of %s failed: %w", name, err)
		}
		for _, p := range plans {
			printPlan(p)
		}
	}
	l.Info("Dry-run mode: No changes were made.")
	return nil
}

// printReport prints a pass report to the console.
func printReport(r *reconcile.Report) {
	fmt.Printf("\n--- %s: %s -> %s ---\n", r.Pipeline, r.Source, r.Target)
	fmt.Printf("Mode:           %s\n", r.Mode)
	fmt.Printf("Columns:        %v\n", r.Columns)
	fmt.Printf("Rows:           %d source, %d target\n", r.SourceRows, r.TargetRows)
	fmt.Printf("Inserted:       %d\n", r.Inserted)
	fmt.Printf("Deleted:        %d\n", r.Deleted)
	fmt.Printf("Updated:        %d (%d cells)\n", r.Updated, r.CellsUpdated)
	fmt.Printf("Keys written:   %d\n", r.KeysWritten)
	if r.Protected > 0 {
		fmt.Printf("Protected:      %d\n", r.Protected)
	}
	fmt.Printf("Duration:       %s\n", r.Duration)
	if len(r.Warnings) > 0 {
		fmt.Println("Warnings:")
		for _, w := range r.Warnings {
			fmt.Printf("- %s\n", w)
		}
	}
}

// printPlan prints a dry-run diff, showing at most five rows per section.
func printPlan(p pipeline.PlanResult) {
	r := p.Report
	fmt.Printf("\n--- %s (plan): %s -> %s ---\n", r.Pipeline, r.Source, r.Target)
	fmt.Printf("Columns:        %v\n", r.Columns)
	fmt.Printf("Rows:           %d source, %d target\n", r.SourceRows, r.TargetRows)
	if p.Diff == nil || p.Diff.IsEmpty() {
		fmt.Println("Target already mirrors source.")
		return
	}
	fmt.Printf("To insert:      %d\n", len(p.Diff.ToInsert))
	fmt.Printf("To delete:      %d\n", len(p.Diff.ToDelete))
	fmt.Printf("To update:      %d\n", len(p.Diff.ToUpdate))
	if p.Diff.Protected > 0 {
		fmt.Printf("Protected:      %d\n", p.Diff.Protected)
	}

	const maxShow = 5
	for i, u := range p.Diff.ToUpdate {
		if i == maxShow {
			fmt.Printf("  ... %d more updates\n", len(p.Diff.ToUpdate)-maxShow)
			break
		}
		fmt.Printf("  update %s: %v\n", u.Key, u.Changed)
	}
}
