package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultDirPerm = 0o755

	DefaultMongod         = "mongod"
	DefaultListen         = "auto"
	DefaultStartupTimeout = 10 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultGracePeriod    = 5 * time.Second
	DefaultPortMin        = 20000
	DefaultPortMax        = 40000
)

type Config struct {
	Registry       string
	Mongod         string
	ParentDir      string
	Listen         string
	PortMin        int
	PortMax        int
	StartupTimeout time.Duration
	PollInterval   time.Duration
	GracePeriod    time.Duration
	Keep           bool
	Verbose        bool
	Debug          bool
	JSON           bool
}

func LoadConfig() *Config {
	return &Config{
		Registry:       viper.GetString("registry"),
		Mongod:         viper.GetString("mongod"),
		ParentDir:      viper.GetString("parent_dir"),
		Listen:         viper.GetString("listen"),
		PortMin:        viper.GetInt("port_min"),
		PortMax:        viper.GetInt("port_max"),
		StartupTimeout: parseDuration(viper.GetString("startup_timeout"), DefaultStartupTimeout),
		PollInterval:   parseDuration(viper.GetString("poll_interval"), DefaultPollInterval),
		GracePeriod:    parseDuration(viper.GetString("grace_period"), DefaultGracePeriod),
		Keep:           viper.GetBool("keep"),
		Verbose:        viper.GetBool("verbose"),
		Debug:          viper.GetBool("debug"),
		JSON:           viper.GetBool("json"),
	}
}

func GetDefault() *Config {
	return &Config{
		Registry:       DefaultRegistryPath(),
		Mongod:         DefaultMongod,
		Listen:         DefaultListen,
		PortMin:        DefaultPortMin,
		PortMax:        DefaultPortMax,
		StartupTimeout: DefaultStartupTimeout,
		PollInterval:   DefaultPollInterval,
		GracePeriod:    DefaultGracePeriod,
	}
}

// DefaultRegistryPath places the registry under the user cache directory,
// falling back to the system temp directory.
func DefaultRegistryPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "tempmongo", "registry.db")
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
