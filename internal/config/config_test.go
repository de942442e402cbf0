package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
version: 1
source:
  host: localhost
  database: app
  username: app
  password: secret
target:
  connection_string: mongodb://localhost:27017
  database: app
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.Port != 5432 {
		t.Errorf("default port = %d, want 5432", cfg.Source.Port)
	}
	if cfg.Source.Schema != "public" {
		t.Errorf("default schema = %q, want public", cfg.Source.Schema)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_RejectsWrongVersion(t *testing.T) {
	path := writeConfig(t, "version: 9\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected version error")
	}
}

func TestLoad_RejectsInvalidMigrationOptions(t *testing.T) {
	path := writeConfig(t, `
version: 1
source:
  host: localhost
  database: app
  username: app
  password: x
target:
  connection_string: mongodb://localhost
  database: app
migration:
  batch_size: -10
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected migration options error for negative batch size")
	}
}

func TestResolveValue_Env(t *testing.T) {
	t.Setenv("S2N_TEST_SECRET", "hunter2")
	got, err := ResolveValue("${ENV:S2N_TEST_SECRET}")
	if err != nil {
		t.Fatalf("ResolveValue: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("resolved = %q, want hunter2", got)
	}

	if _, err := ResolveValue("${ENV:S2N_NOT_SET_ANYWHERE}"); err == nil {
		t.Error("expected error for unset variable")
	}

	plain, err := ResolveValue("plaintext")
	if err != nil || plain != "plaintext" {
		t.Errorf("plain value should pass through, got %q, %v", plain, err)
	}
}

func TestConnString(t *testing.T) {
	src := SourceConfig{Host: "db", Port: 5433, Database: "app", Username: "u", Password: "p", SSL: true}
	want := "postgres://u:p@db:5433/app?sslmode=require"
	if got := src.ConnString(); got != want {
		t.Errorf("ConnString = %q, want %q", got, want)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Source:  SourceConfig{Host: "localhost", Port: 5432, Database: "app", Username: "u", Password: "p"},
		Target:  TargetConfig{ConnectionString: "mongodb://localhost", Database: "app"},
	}
	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Source.Host != "localhost" || loaded.Target.Database != "app" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}
