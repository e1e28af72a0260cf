package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const minimalConfig = `
service: myapp
image: myapp:latest
app_ports: "8080:80"
builder:
  local: true
accessories:
  db:
    image: postgres:13
    network: myapp-network
    ports: "5432:5432"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Builder.Arch != "amd64" {
		t.Errorf("expected default arch amd64, got %q", cfg.Builder.Arch)
	}
	if cfg.Builder.Dockerfile != "." {
		t.Errorf("expected default dockerfile '.', got %q", cfg.Builder.Dockerfile)
	}

	db := cfg.Accessories["db"]
	if db.Service != "myapp-db" {
		t.Errorf("expected derived service name myapp-db, got %q", db.Service)
	}
	if db.Options.Restart != "always" {
		t.Errorf("expected default restart policy always, got %q", db.Options.Restart)
	}
}

func TestLoadSubstitutesEnvironmentVariables(t *testing.T) {
	t.Setenv("DB_PASSWORD", "s3cret")
	cfg, err := Load(writeConfig(t, `
service: myapp
image: myapp:latest
app_ports: "8080:80"
builder:
  local: true
accessories:
  db:
    image: postgres:13
    network: myapp-network
    ports: "5432:5432"
    env:
      POSTGRES_PASSWORD: ${DB_PASSWORD}
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Accessories["db"].Env["POSTGRES_PASSWORD"]; got != "s3cret" {
		t.Errorf("expected substituted password, got %q", got)
	}
}

func TestLoadFailsOnMissingEnvironmentVariable(t *testing.T) {
	_, err := Load(writeConfig(t, `
service: myapp
image: myapp:latest
app_ports: "8080:80"
builder:
  local: true
accessories:
  db:
    image: postgres:13
    network: myapp-network
    ports: "5432:5432"
    env:
      POSTGRES_PASSWORD: ${ASANTIYA_TEST_UNSET_VAR}
`))
	if err == nil {
		t.Fatal("expected error for unset variable")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
	if !strings.Contains(err.Error(), "ASANTIYA_TEST_UNSET_VAR") {
		t.Errorf("error should name the missing variable: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error should mention the missing file: %v", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "service: [unclosed"))
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}

func TestWriteTemplateProducesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	if err := WriteTemplate(path, "myapp", false); err != nil {
		t.Fatalf("WriteTemplate returned error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("generated template failed to load: %v", err)
	}
	if cfg.Service != "myapp" {
		t.Errorf("expected service myapp, got %q", cfg.Service)
	}
	if _, ok := cfg.Accessories["db"]; !ok {
		t.Error("template should declare a db accessory")
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := WriteTemplate(path, "myapp", false); err == nil {
		t.Fatal("expected refusal to overwrite existing file")
	}
	if err := WriteTemplate(path, "myapp", true); err != nil {
		t.Fatalf("force overwrite should succeed: %v", err)
	}
}
