package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"table-sync/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fixFlag  bool
	jsonFlag bool
)

// integrityCmd runs every health check.
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the snapshot archive, the run history and the pipelines",
	Long: `Checks that the snapshot bucket exists, that the run history table matches the
run model and that every pipeline can read both sides with aligned schemas.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd, true, true, true)
	},
}

var storageCheckCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the snapshot bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd, true, false, false)
	},
}

var historyCheckCmd = &cobra.Command{
	Use:   "history",
	Short: "Check and migrate the run history table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd, false, true, false)
	},
}

var pipelinesCheckCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "Plan every pipeline without writing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd, false, false, true)
	},
}

func init() {
	integrityCmd.PersistentFlags().BoolVar(&fixFlag, "fix", false, "Fix what can be fixed (create bucket, migrate table)")
	integrityCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print the reports as JSON")

	integrityCmd.AddCommand(storageCheckCmd)
	integrityCmd.AddCommand(historyCheckCmd)
	integrityCmd.AddCommand(pipelinesCheckCmd)
	RootCmd.AddCommand(integrityCmd)
}

func runIntegrityChecks(cmd *cobra.Command, checkStorage, checkHistory, checkPipelines bool) error {
	ctx := cmd.Context()
	d, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	logg := d.logger
	defer logg.Sync()

	svc := integrity.NewService(d.integrityOptions(), logg)
	results := make(map[string]any)
	failed := false

	if checkStorage {
		report, err := svc.CheckStorage(ctx)
		switch {
		case err != nil:
			logg.Warn("Storage check skipped", zap.Error(err))
			results["storage"] = err.Error()
		case !report.Exists && fixFlag:
			if err := svc.FixStorage(ctx); err != nil {
				return err
			}
			results["storage"] = "fixed"
		default:
			failed = failed || !report.Exists
			results["storage"] = report
		}
	}

	if checkHistory {
		report, err := svc.CheckHistory(ctx)
		switch {
		case err != nil:
			logg.Warn("History check skipped", zap.Error(err))
			results["history"] = err.Error()
		case len(report.MissingColumns) > 0 && fixFlag:
			if err := svc.FixHistory(ctx); err != nil {
				return err
			}
			results["history"] = "fixed"
		default:
			failed = failed || report.Status != "ok"
			results["history"] = report
		}
	}

	if checkPipelines {
		reports := svc.CheckPipelines(ctx)
		for _, r := range reports {
			if r.Status != "ok" {
				failed = true
				logg.Error("Pipeline check failed", zap.String("pipeline", r.Name), zap.String("error", r.Error))
			}
		}
		results["pipelines"] = reports
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for name, result := range results {
			data, _ := json.Marshal(result)
			fmt.Printf("%-10s %s\n", name+":", data)
		}
	}

	if failed {
		return fmt.Errorf("integrity checks failed")
	}
	return nil
}
