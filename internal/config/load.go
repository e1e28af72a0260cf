package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigurationError signals a malformed or contradictory configuration.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path, substitutes ${VAR} placeholders from the environment
// (seeded from a .env file next to the working directory when present),
// applies defaults, and validates the result.
func Load(path string) (*App, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("configuration file not found: %s", path)}
		}
		return nil, &ConfigurationError{Reason: "failed to read configuration file", Err: err}
	}

	expanded, err := substituteEnv(string(raw))
	if err != nil {
		return nil, err
	}

	cfg := &App{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, &ConfigurationError{Reason: "YAML parsing failed", Err: err}
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func substituteEnv(raw string) (string, error) {
	var missing []string
	expanded := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", &ConfigurationError{Reason: fmt.Sprintf("missing environment variables: %v", missing)}
	}
	return expanded, nil
}

func applyDefaults(cfg *App) {
	if cfg.Service == "" {
		cfg.Service = "asantiya"
	}
	if cfg.Builder.Arch == "" {
		cfg.Builder.Arch = "amd64"
	}
	if cfg.Builder.Dockerfile == "" {
		cfg.Builder.Dockerfile = "."
	}
	for name, acc := range cfg.Accessories {
		if acc.Service == "" {
			acc.Service = cfg.Service + "-" + name
		}
		if acc.Options.Restart == "" {
			acc.Options.Restart = "always"
		}
	}
}
