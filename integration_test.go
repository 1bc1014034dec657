package main

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lmorchard/tempmongo-go/internal/registry"
)

func TestIntegrationCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	binaryPath := buildBinary(t)
	testDir := t.TempDir()
	registryPath := filepath.Join(testDir, "registry.db")

	t.Run("version", func(t *testing.T) {
		output, err := runCommand(binaryPath, "version")
		if err != nil {
			t.Fatalf("Version failed: %v, output: %s", err, output)
		}
		if !strings.Contains(output, "tempmongo version") {
			t.Errorf("Version output should name the tool, got: %s", output)
		}
	})

	t.Run("run_missing_mongod", func(t *testing.T) {
		parent := t.TempDir()
		output, err := runCommand(binaryPath,
			"--registry", registryPath,
			"--mongod", filepath.Join(testDir, "no-such-mongod"),
			"--parent-dir", parent,
			"run")
		if err == nil {
			t.Fatalf("Run should fail without a mongod binary, output: %s", output)
		}
		if !strings.Contains(output, "failed to start mongod") {
			t.Errorf("Run output should explain the failure, got: %s", output)
		}

		entries, _ := os.ReadDir(parent)
		if len(entries) != 0 {
			t.Errorf("Run should leave no working directory behind, found %d entries", len(entries))
		}
	})

	t.Run("run_print_requires_seed", func(t *testing.T) {
		output, err := runCommand(binaryPath, "--registry", registryPath, "run", "--print")
		if err == nil {
			t.Fatalf("Run --print without --seed should fail, output: %s", output)
		}
		if !strings.Contains(output, "--print requires --seed") {
			t.Errorf("Unexpected output: %s", output)
		}
	})

	t.Run("list_empty", func(t *testing.T) {
		output, err := runCommand(binaryPath, "--registry", registryPath, "list")
		if err != nil {
			t.Fatalf("List failed: %v, output: %s", err, output)
		}
		if !strings.Contains(output, "No instances recorded") {
			t.Errorf("List output should report no instances, got: %s", output)
		}
	})

	t.Run("list_rejects_unknown_format", func(t *testing.T) {
		output, err := runCommand(binaryPath, "--registry", registryPath, "list", "--format", "xml")
		if err == nil {
			t.Errorf("List should reject unknown format, output: %s", output)
		}
	})
}

func TestIntegrationPrune(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	binaryPath := buildBinary(t)
	testDir := t.TempDir()
	registryPath := filepath.Join(testDir, "registry.db")

	staleDir := filepath.Join(testDir, "tempmongo-stale")
	if err := os.MkdirAll(filepath.Join(staleDir, "db"), 0o755); err != nil {
		t.Fatal(err)
	}
	runningDir := filepath.Join(testDir, "tempmongo-running")
	if err := os.MkdirAll(runningDir, 0o755); err != nil {
		t.Fatal(err)
	}

	db, err := registry.New(registryPath)
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	records := []*registry.Instance{
		{Directory: staleDir, PID: 0, State: "ready", StartedAt: old},
		{Directory: runningDir, PID: os.Getpid(), State: "ready", StartedAt: old},
	}
	for _, rec := range records {
		if err := db.RecordStart(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.MarkClosed(staleDir, "closed", true, ""); err != nil {
		t.Fatal(err)
	}
	db.Close()

	t.Run("list_json", func(t *testing.T) {
		output, err := runCommand(binaryPath, "--registry", registryPath, "list", "--format", "json")
		if err != nil {
			t.Fatalf("List failed: %v, output: %s", err, output)
		}

		var listed []map[string]interface{}
		if err := json.Unmarshal([]byte(output), &listed); err != nil {
			t.Fatalf("List output is not JSON: %v, output: %s", err, output)
		}
		if len(listed) != 2 {
			t.Errorf("Expected 2 listed instances, got %d", len(listed))
		}
	})

	t.Run("prune_dry_run", func(t *testing.T) {
		output, err := runCommand(binaryPath, "--registry", registryPath, "prune", "--age", "1d", "--dry-run")
		if err != nil {
			t.Fatalf("Prune dry run failed: %v, output: %s", err, output)
		}
		if !strings.Contains(output, staleDir) {
			t.Errorf("Dry run should list the stale directory, got: %s", output)
		}
		if strings.Contains(output, runningDir) {
			t.Errorf("Dry run should skip the running instance, got: %s", output)
		}
		if _, err := os.Stat(staleDir); err != nil {
			t.Error("Dry run should not remove anything")
		}
	})

	t.Run("prune", func(t *testing.T) {
		output, err := runCommand(binaryPath, "--registry", registryPath, "prune", "--age", "1d")
		if err != nil {
			t.Fatalf("Prune failed: %v, output: %s", err, output)
		}
		if !strings.Contains(output, "Pruned 1 instance(s)") {
			t.Errorf("Prune should report one instance, got: %s", output)
		}
		if _, err := os.Stat(staleDir); !os.IsNotExist(err) {
			t.Error("Stale directory should be removed")
		}
		if _, err := os.Stat(runningDir); err != nil {
			t.Error("Running instance directory should be kept")
		}
	})

	t.Run("registry_after_prune", func(t *testing.T) {
		db, err := registry.New(registryPath)
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		rec, err := db.GetInstance(staleDir)
		if err != nil {
			t.Fatal(err)
		}
		if rec != nil {
			t.Error("Stale record should be deleted")
		}
		rec, err = db.GetInstance(runningDir)
		if err != nil {
			t.Fatal(err)
		}
		if rec == nil {
			t.Error("Running record should remain")
		}
	})
}

func TestIntegrationRunWithMongod(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	mongod := os.Getenv("TEMPMONGO_MONGOD")
	if mongod == "" {
		mongod = "mongod"
	}
	if _, err := exec.LookPath(mongod); err != nil {
		t.Skip("mongod not available")
	}

	binaryPath := buildBinary(t)
	testDir := t.TempDir()
	parent := t.TempDir()

	seedPath := filepath.Join(testDir, "animals.yaml")
	seed := "database_name: zoo\ncollection_name: animals\ndocuments:\n  - name: rex\n    legs: 4\n  - name: tweety\n    legs: 2\n"
	if err := os.WriteFile(seedPath, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := runCommand(binaryPath,
		"--registry", filepath.Join(testDir, "registry.db"),
		"--mongod", mongod,
		"--parent-dir", parent,
		"run", "--for", "1s", "--timeout", "30s", "--seed", seedPath, "--print")
	if err != nil {
		t.Fatalf("Run failed: %v, output: %s", err, output)
	}

	for _, want := range []string{"mongod ready", "mongodb://", "Seeded 2 document(s) into zoo.animals", `"name":"rex"`} {
		if !strings.Contains(output, want) {
			t.Errorf("Run output should contain %q, got: %s", want, output)
		}
	}

	entries, _ := os.ReadDir(parent)
	if len(entries) != 0 {
		t.Errorf("Run should remove its working directory, found %d entries", len(entries))
	}
}

// Helper functions

func buildBinary(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "tempmongo")

	cmd := exec.Command("go", "build", "-o", binaryPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Failed to build binary: %v, output: %s", err, output)
	}

	return binaryPath
}

func runCommand(binary string, args ...string) (string, error) {
	cmd := exec.Command(binary, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}
