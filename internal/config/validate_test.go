package config

import (
	"strings"
	"testing"
)

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	if err := Validate(testAppConfig()); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestValidateRejectsBadAppPorts(t *testing.T) {
	cfg := testAppConfig()
	cfg.AppPorts = "not-ports"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for malformed app_ports")
	}
}

func TestValidateRejectsBadImageReference(t *testing.T) {
	cfg := testAppConfig()
	cfg.Image = "UPPERCASE/Image:tag"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid image reference")
	}
}

func TestValidateRequiresLocalOrRemoteBuilder(t *testing.T) {
	cfg := testAppConfig()
	cfg.Builder.Local = false
	cfg.Builder.Remote = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for builder with no target")
	}
	if !strings.Contains(err.Error(), "builder") {
		t.Errorf("error should mention the builder: %v", err)
	}
}

func TestValidateRejectsBadAccessoryPorts(t *testing.T) {
	cfg := testAppConfig()
	cfg.Accessories["db"].Ports = "5432"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for malformed accessory ports")
	}
}

func TestValidateRejectsBadRestartPolicy(t *testing.T) {
	cfg := testAppConfig()
	cfg.Accessories["db"].Options.Restart = "sometimes"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown restart policy")
	}
}

func TestValidateRejectsBadVolumeSpec(t *testing.T) {
	cfg := testAppConfig()
	cfg.Accessories["db"].Volumes = []string{"toomany:a:b:c"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for malformed volume")
	}
}

func TestValidateRejectsDuplicateServiceNames(t *testing.T) {
	cfg := testAppConfig()
	cfg.Accessories["cache"].Service = "myapp-db"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for duplicate container name")
	}
	if !strings.Contains(err.Error(), "myapp-db") {
		t.Errorf("error should name the duplicate: %v", err)
	}
}

func TestValidateRejectsServiceNameCollidingWithApp(t *testing.T) {
	cfg := testAppConfig()
	cfg.Accessories["db"].Service = "myapp"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for accessory colliding with the app container")
	}
}

func TestValidateRejectsDanglingDependsOn(t *testing.T) {
	cfg := testAppConfig()
	cfg.Accessories["db"].DependsOn = []string{"ghost"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for undeclared dependency")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error should name the undeclared dependency: %v", err)
	}
}

func TestValidateRejectsDependencyCycle(t *testing.T) {
	cfg := testAppConfig()
	cfg.Accessories["db"].DependsOn = []string{"cache"}
	cfg.Accessories["cache"].DependsOn = []string{"db"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for dependency cycle")
	}
	if !strings.Contains(err.Error(), "dependency") {
		t.Errorf("error should mention the dependency graph: %v", err)
	}
}
