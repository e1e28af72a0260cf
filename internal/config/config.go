// Package config defines the declarative deployment configuration: one
// primary application container plus a set of named accessory services.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// App is the root of a validated deploy.yaml. It is constructed once at
// process start and never mutated afterwards; the docker layer only reads it.
type App struct {
	Service     string                `yaml:"service" validate:"required"`
	Image       string                `yaml:"image" validate:"required"`
	Server      string                `yaml:"server"`
	AppPorts    string                `yaml:"app_ports" validate:"required"`
	Builder     Builder               `yaml:"builder"`
	Accessories map[string]*Accessory `yaml:"accessories" validate:"dive"`
}

// Builder describes how and where the application image is built.
type Builder struct {
	Arch       string `yaml:"arch" validate:"omitempty,oneof=amd64 arm64 armv7"`
	Remote     string `yaml:"remote"`
	Local      bool   `yaml:"local"`
	Dockerfile string `yaml:"dockerfile"`
	SSHKey     string `yaml:"ssh_key"`
}

// Platform returns the build platform string for the configured architecture.
func (b Builder) Platform() string {
	return "linux/" + b.Arch
}

// Accessory is one declared secondary service (database, cache, ...).
type Accessory struct {
	Image     string            `yaml:"image" validate:"required"`
	Service   string            `yaml:"service"`
	Network   string            `yaml:"network" validate:"required"`
	Ports     string            `yaml:"ports" validate:"required"`
	Env       map[string]string `yaml:"env"`
	Options   ContainerOptions  `yaml:"options"`
	Volumes   []string          `yaml:"volumes"`
	DependsOn []string          `yaml:"depends_on"`
}

// ContainerOptions holds runtime behavior knobs for a container.
type ContainerOptions struct {
	Restart string `yaml:"restart" validate:"omitempty,oneof=always unless-stopped on-failure no"`
}

// PortMapping is a parsed HOST:CONTAINER pair.
type PortMapping struct {
	Host      int
	Container int
}

// ParsePorts parses a HOST:CONTAINER string into integer ports.
func ParsePorts(spec string) (PortMapping, error) {
	host, container, ok := strings.Cut(spec, ":")
	if !ok {
		return PortMapping{}, fmt.Errorf("ports must be in HOST:CONTAINER format, got %q", spec)
	}
	h, err := strconv.Atoi(host)
	if err != nil {
		return PortMapping{}, fmt.Errorf("invalid host port in %q: %w", spec, err)
	}
	c, err := strconv.Atoi(container)
	if err != nil {
		return PortMapping{}, fmt.Errorf("invalid container port in %q: %w", spec, err)
	}
	return PortMapping{Host: h, Container: c}, nil
}

// Volume is a parsed host:container[:mode] bind specification.
type Volume struct {
	Source string
	Target string
	Mode   string
}

// ParseVolume parses a host:container[:mode] string. Mode defaults to rw.
func ParseVolume(spec string) (Volume, error) {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 2:
		return Volume{Source: parts[0], Target: parts[1], Mode: "rw"}, nil
	case 3:
		return Volume{Source: parts[0], Target: parts[1], Mode: parts[2]}, nil
	default:
		return Volume{}, fmt.Errorf("invalid volume format: %q", spec)
	}
}

// Bind renders the volume back into the daemon's bind syntax.
func (v Volume) Bind() string {
	return v.Source + ":" + v.Target + ":" + v.Mode
}

// AccessoryKeys returns the sorted accessory map keys.
func (a *App) AccessoryKeys() []string {
	keys := make([]string, 0, len(a.Accessories))
	for key := range a.Accessories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ServiceNames returns the resolved container name of every accessory,
// ordered by accessory key so callers iterate deterministically.
func (a *App) ServiceNames() []string {
	names := make([]string, 0, len(a.Accessories))
	for _, key := range a.AccessoryKeys() {
		names = append(names, a.Accessories[key].Service)
	}
	return names
}

// ResolveAccessory maps an accessory key or a resolved container name to the
// accessory it denotes. The bool reports whether the name is configured.
func (a *App) ResolveAccessory(name string) (string, *Accessory, bool) {
	if acc, ok := a.Accessories[name]; ok {
		return name, acc, true
	}
	for key, acc := range a.Accessories {
		if acc.Service == name {
			return key, acc, true
		}
	}
	return "", nil, false
}
