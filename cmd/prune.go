package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"github.com/lmorchard/tempmongo-go/internal/registry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	pruneAge      string
	pruneDryRun   bool
	pruneNoVacuum bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove leftover instance directories",
	Long: `Prune removes directories left behind by old instances and forgets them.

An instance is prunable when it started before the cutoff and either was
shut down (its directory kept) or its process is no longer running, for
example after a crash. Running instances are never touched.

Examples:
  tempmongo prune                  # Prune instances older than 7 days
  tempmongo prune --age 1h         # Prune instances older than an hour
  tempmongo prune --age 0h         # Prune everything that is not running
  tempmongo prune --dry-run        # Preview what would be removed`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().StringVar(&pruneAge, "age", defaultPruneAge, "Prune instances started longer ago than this (e.g., 7d, 1w, 48h)")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Preview what would be removed without removing anything")
	pruneCmd.Flags().BoolVar(&pruneNoVacuum, "no-vacuum", false, "Skip running VACUUM on the registry")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(_ *cobra.Command, _ []string) error {
	cfg := GetConfig()

	duration, err := registry.ParseDuration(pruneAge)
	if err != nil {
		return fmt.Errorf("invalid age format: %w", err)
	}
	cutoffTime := time.Now().Add(-duration)

	db, err := registry.New(cfg.Registry)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer db.Close()

	candidates, err := findPrunable(db, cutoffTime)
	if err != nil {
		return err
	}

	if pruneDryRun {
		return reportDryRunPrune(cfg, candidates, cutoffTime)
	}

	pruned := executePrune(db, candidates)

	if !pruneNoVacuum && pruned > 0 {
		if err := db.Vacuum(); err != nil {
			logrus.WithError(err).Warn("Failed to vacuum registry")
		}
	}

	if cfg.JSON {
		result := map[string]interface{}{
			"dryRun":     false,
			"cutoffDate": cutoffTime.Format(time.RFC3339),
			"pruned":     pruned,
		}
		jsonData, _ := json.Marshal(result)
		fmt.Println(string(jsonData))
	} else {
		fmt.Printf("Pruned %d instance(s) started before %s\n", pruned, cutoffTime.Format(time.RFC3339))
	}
	return nil
}

func findPrunable(db *registry.DB, cutoff time.Time) ([]*registry.Instance, error) {
	records, err := db.ListStartedBefore(cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	var prunable []*registry.Instance
	for _, rec := range records {
		if isRunning(rec) {
			logrus.WithField("dir", rec.Directory).Debug("Skipping running instance")
			continue
		}
		prunable = append(prunable, rec)
	}
	return prunable, nil
}

func executePrune(db *registry.DB, candidates []*registry.Instance) int {
	pruned := 0
	for _, rec := range candidates {
		if err := os.RemoveAll(rec.Directory); err != nil {
			logrus.WithError(err).WithField("dir", rec.Directory).Warn("Failed to remove directory")
			continue
		}
		if err := db.DeleteInstance(rec.Directory); err != nil {
			logrus.WithError(err).WithField("dir", rec.Directory).Warn("Failed to delete record")
			continue
		}
		logrus.WithField("dir", rec.Directory).Info("Pruned instance")
		pruned++
	}
	return pruned
}

func reportDryRunPrune(cfg *config.Config, candidates []*registry.Instance, cutoff time.Time) error {
	dirs := make([]string, 0, len(candidates))
	for _, rec := range candidates {
		dirs = append(dirs, rec.Directory)
	}

	if cfg.JSON {
		result := map[string]interface{}{
			"dryRun":      true,
			"cutoffDate":  cutoff.Format(time.RFC3339),
			"wouldPrune":  len(dirs),
			"directories": dirs,
		}
		jsonData, _ := json.Marshal(result)
		fmt.Println(string(jsonData))
		return nil
	}

	fmt.Printf("Dry run mode - would prune %d instance(s):\n", len(dirs))
	for _, dir := range dirs {
		fmt.Printf("  - %s\n", dir)
	}
	return nil
}
