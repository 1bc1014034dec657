package initialize

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"github.com/lmorchard/tempmongo-go/internal/registry"
	"gopkg.in/yaml.v3"
)

const unknownVersion = "unknown"

// Config holds all configuration for initialization operations.
type Config struct {
	Registry    string
	Upgrade     bool
	WriteConfig bool
	ConfigPath  string
	// Settings are written to ConfigPath when WriteConfig is set.
	Settings   *config.Config
	JSONOutput bool
	// Confirm is asked before overwriting an existing config file. Nil
	// reads the answer from stdin.
	Confirm func(prompt string) bool
	Out     io.Writer
}

// fileSettings is the on-disk shape of tempmongo.yaml.
type fileSettings struct {
	Registry       string `yaml:"registry"`
	Mongod         string `yaml:"mongod"`
	Listen         string `yaml:"listen"`
	ParentDir      string `yaml:"parent_dir,omitempty"`
	PortMin        int    `yaml:"port_min"`
	PortMax        int    `yaml:"port_max"`
	StartupTimeout string `yaml:"startup_timeout"`
	PollInterval   string `yaml:"poll_interval"`
	GracePeriod    string `yaml:"grace_period"`
	Keep           bool   `yaml:"keep"`
}

// Execute creates or upgrades the registry and optionally writes a config file.
func Execute(cfg *Config) error {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Confirm == nil {
		cfg.Confirm = confirmFromStdin(cfg.Out)
	}

	db, err := initializeRegistry(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	configWritten := false
	if cfg.WriteConfig {
		configWritten, err = writeConfigFile(cfg)
		if err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	if cfg.JSONOutput {
		outputJSON(cfg, db, configWritten)
	}

	return nil
}

func initializeRegistry(cfg *Config) (*registry.DB, error) {
	if _, err := os.Stat(cfg.Registry); err == nil && !cfg.Upgrade {
		return nil, fmt.Errorf("registry already exists at %s. Use --upgrade to upgrade existing registry", cfg.Registry)
	}

	// New applies the schema and any pending migrations.
	db, err := registry.New(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	if !cfg.JSONOutput {
		printRegistryResult(cfg.Out, db, cfg.Upgrade)
	}

	return db, nil
}

func writeConfigFile(cfg *Config) (bool, error) {
	if _, err := os.Stat(cfg.ConfigPath); err == nil {
		if !cfg.JSONOutput {
			fmt.Fprintf(cfg.Out, "File %s already exists and will be overwritten.\n", cfg.ConfigPath)
			if !cfg.Confirm("Continue? [y/N]: ") {
				fmt.Fprintln(cfg.Out, "Config file not written")
				return false, nil
			}
		}
	}

	settings := config.GetDefault()
	if cfg.Settings != nil {
		settings = cfg.Settings
	}

	file := toFileSettings(settings)
	file.Registry = cfg.Registry

	data, err := yaml.Marshal(file)
	if err != nil {
		return false, err
	}

	if dir := filepath.Dir(cfg.ConfigPath); dir != "." {
		if err := os.MkdirAll(dir, config.DefaultDirPerm); err != nil {
			return false, err
		}
	}
	if err := os.WriteFile(cfg.ConfigPath, data, 0o644); err != nil {
		return false, err
	}

	if !cfg.JSONOutput {
		fmt.Fprintf(cfg.Out, "Config written to: %s\n", cfg.ConfigPath)
	}
	return true, nil
}

func toFileSettings(c *config.Config) *fileSettings {
	return &fileSettings{
		Registry:       c.Registry,
		Mongod:         c.Mongod,
		Listen:         c.Listen,
		ParentDir:      c.ParentDir,
		PortMin:        c.PortMin,
		PortMax:        c.PortMax,
		StartupTimeout: c.StartupTimeout.String(),
		PollInterval:   c.PollInterval.String(),
		GracePeriod:    c.GracePeriod.String(),
		Keep:           c.Keep,
	}
}

func confirmFromStdin(out io.Writer) func(string) bool {
	return func(prompt string) bool {
		fmt.Fprint(out, prompt)
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return false
		}

		response = strings.ToLower(strings.TrimSpace(response))
		return response == "y" || response == "yes"
	}
}

func printRegistryResult(out io.Writer, db *registry.DB, upgrade bool) {
	if upgrade {
		version, err := db.GetMigrationVersion()
		if err != nil {
			fmt.Fprintf(out, "Could not get migration version: %v\n", err)
		} else {
			fmt.Fprintf(out, "Current registry version: %d\n", version)
		}
		fmt.Fprintln(out, "Registry schema upgraded successfully")
	} else {
		fmt.Fprintln(out, "Registry initialized successfully")
	}
}

func outputJSON(cfg *Config, db *registry.DB, configWritten bool) {
	result := map[string]any{
		"success":  true,
		"registry": cfg.Registry,
	}

	if cfg.Upgrade {
		result["action"] = "upgrade"
		result["version"] = getVersionForJSON(db)
	} else {
		result["action"] = "initialize"
	}

	if configWritten {
		result["config_written"] = cfg.ConfigPath
	}

	jsonData, _ := json.Marshal(result)
	fmt.Fprintln(cfg.Out, string(jsonData))
}

func getVersionForJSON(db *registry.DB) any {
	if db == nil {
		return unknownVersion
	}
	version, err := db.GetMigrationVersion()
	if err != nil {
		return unknownVersion
	}
	return version
}
