package initialize

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lmorchard/tempmongo-go/internal/config"
	"gopkg.in/yaml.v3"
)

func TestExecuteCreatesRegistry(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	cfg := &Config{
		Registry: filepath.Join(dir, "state", "registry.db"),
		Out:      &out,
	}
	if err := Execute(cfg); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if _, err := os.Stat(cfg.Registry); err != nil {
		t.Errorf("registry not created: %v", err)
	}
	if !strings.Contains(out.String(), "Registry initialized successfully") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestExecuteRefusesExistingRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.db")

	if err := Execute(&Config{Registry: path, Out: &bytes.Buffer{}}); err != nil {
		t.Fatal(err)
	}

	err := Execute(&Config{Registry: path, Out: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "--upgrade") {
		t.Errorf("Execute() error = %v, want hint about --upgrade", err)
	}

	var out bytes.Buffer
	if err := Execute(&Config{Registry: path, Upgrade: true, JSONOutput: true, Out: &out}); err != nil {
		t.Fatalf("Execute(upgrade) error = %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, out.String())
	}
	if result["action"] != "upgrade" {
		t.Errorf("action = %v, want upgrade", result["action"])
	}
	if _, ok := result["version"].(float64); !ok {
		t.Errorf("version = %v, want a number", result["version"])
	}
}

func TestExecuteWritesConfig(t *testing.T) {
	dir := t.TempDir()

	settings := config.GetDefault()
	settings.Mongod = "/opt/mongodb/bin/mongod"
	settings.StartupTimeout = 20 * time.Second

	cfg := &Config{
		Registry:    filepath.Join(dir, "registry.db"),
		WriteConfig: true,
		ConfigPath:  filepath.Join(dir, "tempmongo.yaml"),
		Settings:    settings,
		Out:         &bytes.Buffer{},
	}
	if err := Execute(cfg); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]interface{}
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}

	tests := map[string]interface{}{
		"registry":        cfg.Registry,
		"mongod":          "/opt/mongodb/bin/mongod",
		"listen":          config.DefaultListen,
		"startup_timeout": "20s",
		"port_min":        config.DefaultPortMin,
	}
	for key, want := range tests {
		if got[key] != want {
			t.Errorf("%s = %v, want %v", key, got[key], want)
		}
	}
	if _, ok := got["parent_dir"]; ok {
		t.Error("empty parent_dir should be omitted")
	}
}

func TestExecuteConfigOverwriteDeclined(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "tempmongo.yaml")
	if err := os.WriteFile(configPath, []byte("mongod: keep-me\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	asked := false
	cfg := &Config{
		Registry:    filepath.Join(dir, "registry.db"),
		WriteConfig: true,
		ConfigPath:  configPath,
		Confirm: func(string) bool {
			asked = true
			return false
		},
		Out: &bytes.Buffer{},
	}
	if err := Execute(cfg); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !asked {
		t.Error("overwrite was not confirmed")
	}
	data, _ := os.ReadFile(configPath)
	if string(data) != "mongod: keep-me\n" {
		t.Errorf("config overwritten: %s", data)
	}
}
