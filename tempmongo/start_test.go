package tempmongo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lmorchard/tempmongo-go/internal/procutil"
	"github.com/lmorchard/tempmongo-go/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "working directory left behind in %s", dir)
}

func TestStartMissingBinary(t *testing.T) {
	parent := t.TempDir()

	inst, err := Start(context.Background(), &Config{
		MongodPath: filepath.Join(parent, "no-such-mongod"),
		ParentDir:  parent,
	})

	assert.Nil(t, inst)
	require.ErrorIs(t, err, ErrProcessSpawn)
	assert.NotErrorIs(t, err, ErrIO)
	assertEmptyDir(t, parent)
}

func TestStartMissingParentDir(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "missing")

	_, err := Start(context.Background(), &Config{ParentDir: parent})

	require.ErrorIs(t, err, ErrIO)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, parent, e.Path)
}

func TestStartInvalidPortRange(t *testing.T) {
	parent := t.TempDir()

	_, err := Start(context.Background(), &Config{
		ParentDir: parent,
		PortMin:   5000,
		PortMax:   10,
	})

	require.ErrorIs(t, err, ErrIO)
	assertEmptyDir(t, parent)
}

func TestStartRejectsUnknownListenMode(t *testing.T) {
	cfg := fakeServer(t, "exit")
	cfg.Listen = "bogus"

	_, err := Start(context.Background(), cfg)

	require.ErrorIs(t, err, ErrProcessSpawn)
	assert.Contains(t, err.Error(), "unsupported listen mode")
	assert.NotContains(t, err.Error(), "refusing to start", "server was spawned for an invalid config")
	assertEmptyDir(t, cfg.ParentDir)
}

func TestStartServerExitsEarly(t *testing.T) {
	cfg := fakeServer(t, "exit")

	_, err := Start(context.Background(), cfg)

	require.ErrorIs(t, err, ErrProcessSpawn)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "refusing to start")
	assertEmptyDir(t, cfg.ParentDir)
}

func TestStartClientInitFailure(t *testing.T) {
	cfg := fakeServer(t, "accept")
	cfg.StartupTimeout = time.Second

	_, err := Start(context.Background(), cfg)

	require.ErrorIs(t, err, ErrClientInit)
	assert.NotErrorIs(t, err, ErrReadinessTimeout)
	assertEmptyDir(t, cfg.ParentDir)
}

func TestStartPollsUntilListening(t *testing.T) {
	cfg := fakeServer(t, "delay")
	cfg.StartupTimeout = 3 * time.Second

	_, err := Start(context.Background(), cfg)

	// Reaching the handshake proves the poll outlasted the delayed listen.
	require.ErrorIs(t, err, ErrClientInit)
	assertEmptyDir(t, cfg.ParentDir)
}

func TestStartTCPListen(t *testing.T) {
	cfg := fakeServer(t, "accept")
	cfg.Listen = ListenTCP
	cfg.StartupTimeout = time.Second

	_, err := Start(context.Background(), cfg)

	require.ErrorIs(t, err, ErrClientInit)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Path, "127.0.0.1:")
}

func TestStartFailureRecordedInRegistry(t *testing.T) {
	cfg := fakeServer(t, "accept")
	cfg.StartupTimeout = time.Second
	cfg.RegistryPath = filepath.Join(t.TempDir(), "registry.db")

	_, err := Start(context.Background(), cfg)
	require.Error(t, err)

	rec := onlyRecord(t, cfg.RegistryPath)
	assert.True(t, rec.Closed())
	assert.Equal(t, StateClosed.String(), rec.State)
	assert.False(t, rec.Disowned)
	assert.Equal(t, cfg.MongodPath, rec.MongodPath)
	assert.NoDirExists(t, rec.Directory)
}

func TestStartRegistryUnavailableIsNotFatal(t *testing.T) {
	cfg := fakeServer(t, "exit")

	// A regular file where the registry directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.RegistryPath = filepath.Join(blocker, "registry.db")

	_, err := Start(context.Background(), cfg)

	// The start still fails for its own reason.
	require.ErrorIs(t, err, ErrProcessSpawn)
	assert.False(t, errors.Is(err, ErrIO))
}

// onlyRecord returns the single instance recorded in the registry at path.
func onlyRecord(t *testing.T, path string) *registry.Instance {
	t.Helper()

	db, err := registry.New(path)
	require.NoError(t, err)
	defer db.Close()

	records, err := db.ListInstances(true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	return records[0]
}

func TestStartReadinessTimeout(t *testing.T) {
	cfg := fakeServer(t, "hang")
	cfg.StartupTimeout = 300 * time.Millisecond
	cfg.RegistryPath = filepath.Join(t.TempDir(), "registry.db")

	started := time.Now()
	_, err := Start(context.Background(), cfg)

	require.ErrorIs(t, err, ErrReadinessTimeout)
	assert.Less(t, time.Since(started), cfg.StartupTimeout+cfg.GracePeriod+time.Second)
	assertEmptyDir(t, cfg.ParentDir)

	rec := onlyRecord(t, cfg.RegistryPath)
	assert.False(t, procutil.Alive(rec.PID), "server process %d still running", rec.PID)
}

func TestStartContextCancelled(t *testing.T) {
	cfg := fakeServer(t, "hang")
	cfg.StartupTimeout = time.Minute
	cfg.RegistryPath = filepath.Join(t.TempDir(), "registry.db")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := Start(ctx, cfg)

	require.ErrorIs(t, err, ErrReadinessTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assertEmptyDir(t, cfg.ParentDir)

	rec := onlyRecord(t, cfg.RegistryPath)
	assert.False(t, procutil.Alive(rec.PID))
}
