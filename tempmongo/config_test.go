package tempmongo

import (
	"testing"
	"time"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, config.DefaultMongod, cfg.MongodPath)
	assert.Equal(t, ListenAuto, cfg.Listen)
	assert.Equal(t, config.DefaultPortMin, cfg.PortMin)
	assert.Equal(t, config.DefaultPortMax, cfg.PortMax)
	assert.Equal(t, config.DefaultStartupTimeout, cfg.StartupTimeout)
	assert.Equal(t, config.DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, config.DefaultGracePeriod, cfg.GracePeriod)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.NotNil(t, cfg.Logger)
	assert.False(t, cfg.KeepDirectory)
	assert.Empty(t, cfg.RegistryPath)
}

func TestWithDefaultsKeepsOverrides(t *testing.T) {
	in := &Config{
		MongodPath:     "/opt/mongo/bin/mongod",
		Listen:         ListenTCP,
		PortMin:        30000,
		PortMax:        30010,
		StartupTimeout: 3 * time.Second,
		PollInterval:   10 * time.Millisecond,
		ExtraArgs:      []string{"--quiet"},
		KeepDirectory:  true,
	}

	out := in.withDefaults()

	assert.NotSame(t, in, out)
	assert.Equal(t, "/opt/mongo/bin/mongod", out.MongodPath)
	assert.Equal(t, ListenTCP, out.Listen)
	assert.Equal(t, 30000, out.PortMin)
	assert.Equal(t, 30010, out.PortMax)
	assert.Equal(t, 3*time.Second, out.StartupTimeout)
	assert.Equal(t, 10*time.Millisecond, out.PollInterval)
	assert.Equal(t, config.DefaultGracePeriod, out.GracePeriod)
	assert.True(t, out.KeepDirectory)

	// The copy must not share the caller's slice.
	out.ExtraArgs[0] = "--changed"
	assert.Equal(t, "--quiet", in.ExtraArgs[0])
}

func TestWithDefaultsPortBounds(t *testing.T) {
	tests := []struct {
		name             string
		min, max         int
		wantMin, wantMax int
	}{
		{"both default", 0, 0, config.DefaultPortMin, config.DefaultPortMax},
		{"min only", 25000, 0, 25000, config.DefaultPortMax},
		{"max only", 0, 30000, config.DefaultPortMin, 30000},
		{"min above default max", 50000, 0, 50000, 65535},
		{"max below default min", 0, 15000, 1024, 15000},
		{"both set", 31000, 31010, 31000, 31010},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := (&Config{PortMin: tt.min, PortMax: tt.max}).withDefaults()
			assert.Equal(t, tt.wantMin, out.PortMin)
			assert.Equal(t, tt.wantMax, out.PortMax)
		})
	}
}

func TestParseListenMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ListenMode
		wantErr bool
	}{
		{"", ListenAuto, false},
		{"auto", ListenAuto, false},
		{"Socket", ListenSocket, false},
		{" tcp ", ListenTCP, false},
		{"udp", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseListenMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListenModeUseSocket(t *testing.T) {
	got, err := ListenTCP.useSocket()
	require.NoError(t, err)
	assert.False(t, got)

	got, err = ListenAuto.useSocket()
	require.NoError(t, err)
	assert.Equal(t, socketsSupported, got)

	_, err = ListenMode("bogus").useSocket()
	assert.Error(t, err)

	got, err = ListenSocket.useSocket()
	if socketsSupported {
		require.NoError(t, err)
		assert.True(t, got)
	} else {
		assert.Error(t, err)
	}
}

func TestFromAppConfig(t *testing.T) {
	app := config.GetDefault()
	app.Mongod = "/usr/local/bin/mongod"
	app.Listen = "tcp"
	app.Keep = true
	app.Registry = "/tmp/registry.db"
	app.StartupTimeout = 2 * time.Second

	cfg, err := FromAppConfig(app)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/mongod", cfg.MongodPath)
	assert.Equal(t, ListenTCP, cfg.Listen)
	assert.True(t, cfg.KeepDirectory)
	assert.Equal(t, "/tmp/registry.db", cfg.RegistryPath)
	assert.Equal(t, 2*time.Second, cfg.StartupTimeout)

	app.Listen = "carrier-pigeon"
	_, err = FromAppConfig(app)
	assert.Error(t, err)
}
