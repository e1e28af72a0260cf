package config

import (
	"fmt"

	"github.com/distribution/reference"
	"github.com/go-playground/validator/v10"

	"github.com/shahid-0/asantiya/internal/deps"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate enforces every structural invariant of the configuration:
// well-formed ports and image references, no dangling depends_on edges,
// unique resolved container names, and an acyclic dependency graph.
func Validate(cfg *App) error {
	if err := validate.Struct(cfg); err != nil {
		return &ConfigurationError{Reason: "schema validation failed", Err: err}
	}

	if _, err := ParsePorts(cfg.AppPorts); err != nil {
		return &ConfigurationError{Reason: "invalid app_ports", Err: err}
	}
	if _, err := reference.ParseNormalizedNamed(cfg.Image); err != nil {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid image reference %q", cfg.Image), Err: err}
	}
	if !cfg.Builder.Local && cfg.Builder.Remote == "" {
		return &ConfigurationError{Reason: "builder must set local: true or a remote endpoint"}
	}

	seen := map[string]string{cfg.Service: "app service"}
	graph := make(map[string][]string, len(cfg.Accessories))
	for _, name := range cfg.AccessoryKeys() {
		acc := cfg.Accessories[name]
		if _, err := ParsePorts(acc.Ports); err != nil {
			return &ConfigurationError{Reason: fmt.Sprintf("accessory %q has invalid ports", name), Err: err}
		}
		if _, err := reference.ParseNormalizedNamed(acc.Image); err != nil {
			return &ConfigurationError{Reason: fmt.Sprintf("accessory %q has invalid image reference %q", name, acc.Image), Err: err}
		}
		for _, vol := range acc.Volumes {
			if _, err := ParseVolume(vol); err != nil {
				return &ConfigurationError{Reason: fmt.Sprintf("accessory %q has invalid volume", name), Err: err}
			}
		}
		if owner, dup := seen[acc.Service]; dup {
			return &ConfigurationError{Reason: fmt.Sprintf(
				"accessory %q resolves to container name %q already used by %s", name, acc.Service, owner)}
		}
		seen[acc.Service] = fmt.Sprintf("accessory %q", name)

		for _, dep := range acc.DependsOn {
			if _, ok := cfg.Accessories[dep]; !ok {
				return &ConfigurationError{Reason: fmt.Sprintf(
					"accessory %q depends on undeclared accessory %q", name, dep)}
			}
		}
		graph[name] = acc.DependsOn
	}

	if _, err := deps.Order(graph); err != nil {
		return &ConfigurationError{Reason: "unresolvable dependency graph", Err: err}
	}
	return nil
}
