package tempmongo

import (
	"fmt"
	"strings"
	"time"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"github.com/sirupsen/logrus"
)

// ListenMode selects how the server is reached.
type ListenMode string

const (
	// ListenAuto uses a Unix socket where supported and TCP otherwise.
	ListenAuto   ListenMode = "auto"
	ListenSocket ListenMode = "socket"
	ListenTCP    ListenMode = "tcp"
)

const DefaultConnectTimeout = time.Second

const (
	minUserPort = 1024
	maxPort     = 65535
)

// Config customizes Start. The zero value of every field means its default.
type Config struct {
	// MongodPath is the server binary; "mongod" looked up in PATH by default.
	MongodPath string
	// ParentDir holds the working directory; the system temp dir by default.
	ParentDir string
	Listen    ListenMode
	// PortMin and PortMax bound the random port passed to --port.
	PortMin int
	PortMax int
	// StartupTimeout bounds the readiness poll and the initial handshake.
	StartupTimeout time.Duration
	PollInterval   time.Duration
	// GracePeriod is how long teardown waits after SIGTERM before killing.
	GracePeriod    time.Duration
	ConnectTimeout time.Duration
	// ExtraArgs are appended to the mongod command line.
	ExtraArgs []string
	// KeepDirectory starts the instance already disowned.
	KeepDirectory bool
	Logger        logrus.FieldLogger
	// RegistryPath, when set, records the instance in a registry database.
	RegistryPath string
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() *Config {
	return (&Config{}).withDefaults()
}

// FromAppConfig maps CLI configuration onto a Config.
func FromAppConfig(app *config.Config) (*Config, error) {
	mode, err := ParseListenMode(app.Listen)
	if err != nil {
		return nil, err
	}
	return &Config{
		MongodPath:     app.Mongod,
		ParentDir:      app.ParentDir,
		Listen:         mode,
		PortMin:        app.PortMin,
		PortMax:        app.PortMax,
		StartupTimeout: app.StartupTimeout,
		PollInterval:   app.PollInterval,
		GracePeriod:    app.GracePeriod,
		KeepDirectory:  app.Keep,
		RegistryPath:   app.Registry,
	}, nil
}

func (c *Config) withDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
		out.ExtraArgs = append([]string(nil), c.ExtraArgs...)
	}

	if out.MongodPath == "" {
		out.MongodPath = config.DefaultMongod
	}
	if out.Listen == "" {
		out.Listen = ListenAuto
	}
	// Each bound defaults on its own; a default that would invert the range
	// widens to the registered or dynamic port edge instead.
	if out.PortMin == 0 {
		out.PortMin = config.DefaultPortMin
		if out.PortMax != 0 && out.PortMax < out.PortMin {
			out.PortMin = minUserPort
		}
	}
	if out.PortMax == 0 {
		out.PortMax = config.DefaultPortMax
		if out.PortMin > out.PortMax {
			out.PortMax = maxPort
		}
	}
	if out.StartupTimeout <= 0 {
		out.StartupTimeout = config.DefaultStartupTimeout
	}
	if out.PollInterval <= 0 {
		out.PollInterval = config.DefaultPollInterval
	}
	if out.GracePeriod <= 0 {
		out.GracePeriod = config.DefaultGracePeriod
	}
	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = DefaultConnectTimeout
	}
	if out.Logger == nil {
		out.Logger = logrus.StandardLogger()
	}
	return &out
}

// ParseListenMode validates a listen mode name. Empty means ListenAuto.
func ParseListenMode(s string) (ListenMode, error) {
	switch mode := ListenMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return ListenAuto, nil
	case ListenAuto, ListenSocket, ListenTCP:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported listen mode: %s (must be auto, socket or tcp)", s)
	}
}

// useSocket resolves the mode against platform support. Unknown modes are rejected.
func (m ListenMode) useSocket() (bool, error) {
	switch m {
	case ListenSocket:
		if !socketsSupported {
			return false, fmt.Errorf("unix sockets are not supported on this platform")
		}
		return true, nil
	case ListenTCP:
		return false, nil
	case ListenAuto:
		return socketsSupported, nil
	default:
		return false, fmt.Errorf("unsupported listen mode: %s (must be auto, socket or tcp)", m)
	}
}
