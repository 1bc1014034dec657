package cmd

import (
	"github.com/lmorchard/tempmongo-go/internal/initialize"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./tempmongo.yaml"

var (
	upgradeFlag     bool
	writeConfigFlag bool
	initConfigPath  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the registry and optionally write a config file",
	Long: `Initialize the instance registry and optionally write a config file.

Registry initialization:
  tempmongo init                    # Create a new registry
  tempmongo init --upgrade          # Upgrade an existing registry schema

Config file:
  tempmongo init --write-config                         # Write ./tempmongo.yaml
  tempmongo init --write-config --config-path ci.yaml   # Write elsewhere

The written config captures the current settings (flags, environment and
any config file already read), so it can be used as a starting point.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&upgradeFlag, "upgrade", false, "Upgrade existing registry schema")
	initCmd.Flags().BoolVar(&writeConfigFlag, "write-config", false, "Write current settings to a config file")
	initCmd.Flags().StringVar(&initConfigPath, "config-path", defaultConfigPath, "Path for --write-config")

	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	cfg := GetConfig()

	return initialize.Execute(&initialize.Config{
		Registry:    cfg.Registry,
		Upgrade:     upgradeFlag,
		WriteConfig: writeConfigFlag,
		ConfigPath:  initConfigPath,
		Settings:    cfg,
		JSONOutput:  cfg.JSON,
	})
}
