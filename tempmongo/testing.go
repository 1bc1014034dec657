package tempmongo

import (
	"context"
	"os/exec"
	"testing"

	"github.com/lmorchard/tempmongo-go/internal/config"
)

// RequireMongod skips the test when the mongod binary (path, or "mongod"
// from PATH when empty) cannot be found, and returns its resolved path.
func RequireMongod(tb testing.TB, path string) string {
	tb.Helper()

	if path == "" {
		path = config.DefaultMongod
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		tb.Skipf("mongod not available: %v", err)
	}
	return resolved
}

// StartT starts an instance for a test, failing it on error, and closes the
// instance when the test and its subtests finish.
func StartT(tb testing.TB, cfg *Config) *Instance {
	tb.Helper()

	inst, err := Start(context.Background(), cfg)
	if err != nil {
		tb.Fatalf("failed to start temporary mongod: %v", err)
	}
	tb.Cleanup(inst.Close)
	return inst
}
