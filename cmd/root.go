package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tempmongo",
	Short: "tempmongo - disposable MongoDB servers",
	Long: `tempmongo starts throwaway mongod processes in private temporary directories.

Features:
• Runs mongod on a Unix socket (or a free loopback port) inside a fresh directory
• Waits until the server accepts connections and prints how to reach it
• Seeds collections from JSON, YAML, CSV or XLSX files
• Removes all server state on exit unless asked to keep it
• Records instances in a local registry for listing and pruning

Use 'tempmongo <command> --help' for detailed command information.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		initConfig()
		setupLogging()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./tempmongo.yaml)")
	rootCmd.PersistentFlags().String("registry", config.DefaultRegistryPath(), "instance registry database path")
	rootCmd.PersistentFlags().String("mongod", config.DefaultMongod, "mongod binary")
	rootCmd.PersistentFlags().String("listen", config.DefaultListen, "listen mode (auto|socket|tcp)")
	rootCmd.PersistentFlags().String("parent-dir", "", "directory to create instance directories in (default is the system temp dir)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "debug output")
	rootCmd.PersistentFlags().Bool("json", false, "JSON output format")

	_ = viper.BindPFlag("registry", rootCmd.PersistentFlags().Lookup("registry"))
	_ = viper.BindPFlag("mongod", rootCmd.PersistentFlags().Lookup("mongod"))
	_ = viper.BindPFlag("listen", rootCmd.PersistentFlags().Lookup("listen"))
	_ = viper.BindPFlag("parent_dir", rootCmd.PersistentFlags().Lookup("parent-dir"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("tempmongo")
	}

	viper.SetDefault("registry", config.DefaultRegistryPath())
	viper.SetDefault("mongod", config.DefaultMongod)
	viper.SetDefault("listen", config.DefaultListen)
	viper.SetDefault("port_min", config.DefaultPortMin)
	viper.SetDefault("port_max", config.DefaultPortMax)
	viper.SetDefault("startup_timeout", config.DefaultStartupTimeout.String())
	viper.SetDefault("poll_interval", config.DefaultPollInterval.String())
	viper.SetDefault("grace_period", config.DefaultGracePeriod.String())

	viper.SetEnvPrefix("TEMPMONGO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &configNotFoundErr) {
			if cfgFile != "" {
				logrus.WithError(err).Warn("Specified config file not found")
			}
		} else if cfgFile != "" {
			logrus.WithError(err).Warn("Error reading specified config file")
		}
	}

	cfg = config.LoadConfig()
}

func setupLogging() {
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else if cfg.Verbose {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	if cfg.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: true,
		})
	}
}

func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.LoadConfig()
	}
	return cfg
}
