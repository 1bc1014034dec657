package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"github.com/lmorchard/tempmongo-go/tempmongo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

var (
	runFor            time.Duration
	runSeed           string
	runSeedDB         string
	runSeedCollection string
	runSeedFormat     string
	runSheet          string
	runPrint          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a temporary mongod until interrupted",
	Long: `Start a disposable mongod in a fresh temporary directory and wait.

The connection URI and directory are printed once the server accepts
connections. On SIGINT/SIGTERM (or after --for) the server is stopped and
its directory removed, unless --keep is given.

A seed file can be loaded before waiting:
- JSON (extended JSON) or YAML with database_name, collection_name, documents
- A bare JSON/YAML array of documents (with --seed-db and --seed-collection)
- CSV or XLSX with a header row (with --seed-db and --seed-collection)

Examples:
  tempmongo run                                  # Run until Ctrl-C
  tempmongo run --for 30s                        # Run for 30 seconds
  tempmongo run --listen tcp --json              # TCP endpoint, JSON output
  tempmongo run --keep                           # Keep the directory afterwards
  tempmongo run --seed animals.csv --seed-db zoo --seed-collection animals --print`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("keep", false, "Keep the working directory after shutdown")
	runCmd.Flags().String("timeout", config.DefaultStartupTimeout.String(), "How long to wait for the server to accept connections")
	runCmd.Flags().DurationVar(&runFor, "for", 0, "Stop after this long instead of waiting for a signal")
	runCmd.Flags().StringVar(&runSeed, "seed", "", "Seed file to load after startup")
	runCmd.Flags().StringVar(&runSeedDB, "seed-db", "", "Database for seed documents (overrides the file)")
	runCmd.Flags().StringVar(&runSeedCollection, "seed-collection", "", "Collection for seed documents (overrides the file)")
	runCmd.Flags().StringVar(&runSeedFormat, "seed-format", "", "Seed file format (json|yaml|csv|xlsx), detected from the extension by default")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "Worksheet to read from an XLSX seed file (default is the first)")
	runCmd.Flags().BoolVar(&runPrint, "print", false, "Print the seeded collection after loading")

	_ = viper.BindPFlag("keep", runCmd.Flags().Lookup("keep"))
	_ = viper.BindPFlag("startup_timeout", runCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, _ []string) error {
	cfg := GetConfig()

	if runPrint && runSeed == "" {
		return errors.New("--print requires --seed")
	}

	opts, err := tempmongo.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	opts.Logger = logrus.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inst, err := tempmongo.Start(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to start mongod: %w", err)
	}

	runErr := runInstance(ctx, cfg, inst)

	if err := shutdownInstance(cfg, inst); err != nil {
		return multierr.Append(runErr, err)
	}
	return runErr
}

func runInstance(ctx context.Context, cfg *config.Config, inst *tempmongo.Instance) error {
	if err := printConnectionInfo(cfg, inst); err != nil {
		return err
	}

	if runSeed != "" {
		if err := seedInstance(ctx, cfg, inst); err != nil {
			return err
		}
	}

	waitForShutdown(ctx)
	return nil
}

func seedInstance(ctx context.Context, cfg *config.Config, inst *tempmongo.Instance) error {
	seed, err := inst.LoadSeedFile(ctx, runSeed, tempmongo.SeedFileOptions{
		Database:   runSeedDB,
		Collection: runSeedCollection,
		Format:     runSeedFormat,
		Sheet:      runSheet,
	})
	if err != nil {
		return fmt.Errorf("failed to load seed file %s: %w", runSeed, err)
	}

	if !cfg.JSON {
		fmt.Printf("Seeded %d document(s) into %s.%s\n", len(seed.Documents), seed.Database, seed.Collection)
	}

	if runPrint {
		if _, err := inst.PrintDocuments(ctx, os.Stdout, seed.Database, seed.Collection); err != nil {
			return err
		}
	}
	return nil
}

func waitForShutdown(ctx context.Context) {
	if runFor <= 0 {
		<-ctx.Done()
		return
	}

	timer := time.NewTimer(runFor)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func printConnectionInfo(cfg *config.Config, inst *tempmongo.Instance) error {
	if cfg.JSON {
		info := map[string]interface{}{
			"uri":       inst.URI(),
			"endpoint":  inst.Endpoint(),
			"directory": inst.Directory(),
			"dataPath":  inst.DataPath(),
			"logPath":   inst.LogPath(),
			"pid":       inst.ProcessID(),
			"keep":      inst.Disowned(),
		}
		jsonData, err := json.Marshal(info)
		if err != nil {
			return err
		}
		fmt.Println(string(jsonData))
		return nil
	}

	fmt.Printf("mongod ready (pid %d)\n", inst.ProcessID())
	fmt.Printf("  uri:       %s\n", inst.URI())
	fmt.Printf("  directory: %s\n", inst.Directory())
	fmt.Printf("  log:       %s\n", inst.LogPath())
	if inst.Disowned() {
		fmt.Println("The directory will be kept after shutdown.")
	}
	return nil
}

func shutdownInstance(cfg *config.Config, inst *tempmongo.Instance) error {
	ctx := context.Background()

	var err error
	if cfg.Keep {
		err = inst.KillNoClean(ctx)
	} else {
		err = inst.KillAndClean(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to shut down mongod: %w", err)
	}

	if !cfg.JSON {
		if cfg.Keep {
			fmt.Printf("Stopped mongod, kept %s\n", inst.Directory())
		} else {
			fmt.Println("Stopped mongod and removed its directory")
		}
	}
	return nil
}
